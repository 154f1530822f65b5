// Package models defines the core domain records of the ledger.
//
// # Records
//
//   - Expense: one member's payment on behalf of the group, already split
//     into per-member obligations
//   - Settlement: a direct payment from one member to another
//   - Group: a directory entry naming a closed set of members
//
// # Design Principles
//
//  1. **Immutable records**: expenses and settlements are created once and
//     never updated. Corrections are new, compensating records.
//  2. **Opaque members**: members are plain string identifiers; the ledger
//     only ever compares them for equality.
//  3. **Fixed point**: every amount is a decimal.Decimal at the currency's
//     minor unit, never a float.
//  4. **No shared maps**: records handed out by the ledger are deep copies
//     (see Clone), so callers cannot mutate ledger state through them.
package models
