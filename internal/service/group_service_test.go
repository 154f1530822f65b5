package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

// setupTestServer creates a test server with both LedgerService and GroupService
func setupTestServer(t *testing.T) (*GroupServiceClient, *LedgerServiceClient) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	l := ledger.New(store)
	ledgerPath, ledgerHandler := NewLedgerServiceHandler(NewLedgerService(l, money.DefaultPlaces))
	groupPath, groupHandler := NewGroupServiceHandler(NewGroupService(store))

	mux := http.NewServeMux()
	mux.Handle(ledgerPath, ledgerHandler)
	mux.Handle(groupPath, groupHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return NewGroupServiceClient(http.DefaultClient, server.URL),
		NewLedgerServiceClient(http.DefaultClient, server.URL)
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T", err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

func createGroup(t *testing.T, client *GroupServiceClient, name string, members ...string) string {
	t.Helper()
	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(&CreateGroupRequest{
		Name:    name,
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group.ID
}

func TestCreateGroup(t *testing.T) {
	client, _ := setupTestServer(t)

	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(&CreateGroupRequest{
		Name:    "Roommates",
		Members: []string{"Alice", "Bob", "Charlie"},
	}))

	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if resp.Msg.Group == nil {
		t.Fatal("expected group in response")
	}

	if resp.Msg.Group.ID == "" {
		t.Error("expected non-empty group ID")
	}

	if resp.Msg.Group.Name != "Roommates" {
		t.Errorf("name: expected 'Roommates', got '%s'", resp.Msg.Group.Name)
	}

	if len(resp.Msg.Group.Members) != 3 {
		t.Errorf("members: expected 3, got %d", len(resp.Msg.Group.Members))
	}

	if resp.Msg.Group.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}
}

func TestCreateGroup_EmptyMember(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.CreateGroup(context.Background(), connect.NewRequest(&CreateGroupRequest{
		Name:    "Bad",
		Members: []string{"Alice", ""},
	}))

	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestGetGroup(t *testing.T) {
	client, _ := setupTestServer(t)

	groupID := createGroup(t, client, "Work Lunch", "Diana", "Eve")

	getResp, err := client.GetGroup(context.Background(), connect.NewRequest(&GetGroupRequest{
		GroupID: groupID,
	}))

	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}

	if getResp.Msg.Group.Name != "Work Lunch" {
		t.Errorf("name: expected 'Work Lunch', got '%s'", getResp.Msg.Group.Name)
	}

	if len(getResp.Msg.Group.Members) != 2 {
		t.Errorf("members: expected 2, got %d", len(getResp.Msg.Group.Members))
	}
}

func TestGetGroup_NotFound(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.GetGroup(context.Background(), connect.NewRequest(&GetGroupRequest{
		GroupID: "nonexistent-id",
	}))

	assertCode(t, err, connect.CodeNotFound)
}

func TestListGroups(t *testing.T) {
	client, _ := setupTestServer(t)

	createGroup(t, client, "Group A", "A1", "A2")
	createGroup(t, client, "Group B", "B1", "B2")

	listResp, err := client.ListGroups(context.Background(), connect.NewRequest(&ListGroupsRequest{}))

	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}

	if len(listResp.Msg.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(listResp.Msg.Groups))
	}

	for _, g := range listResp.Msg.Groups {
		if len(g.Members) == 0 {
			t.Errorf("group %s has no members", g.Name)
		}
	}
}

func TestListGroups_Empty(t *testing.T) {
	client, _ := setupTestServer(t)

	listResp, err := client.ListGroups(context.Background(), connect.NewRequest(&ListGroupsRequest{}))

	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}

	if len(listResp.Msg.Groups) != 0 {
		t.Errorf("expected 0 groups, got %d", len(listResp.Msg.Groups))
	}
}

func TestAddGroupMembers(t *testing.T) {
	client, _ := setupTestServer(t)

	groupID := createGroup(t, client, "Trip", "X", "Y")

	resp, err := client.AddGroupMembers(context.Background(), connect.NewRequest(&AddGroupMembersRequest{
		GroupID: groupID,
		Members: []string{"Y", "Z"},
	}))

	if err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}

	want := []string{"X", "Y", "Z"}
	got := resp.Msg.Group.Members
	if len(got) != len(want) {
		t.Fatalf("members: expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("members[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestAddGroupMembers_NotFound(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.AddGroupMembers(context.Background(), connect.NewRequest(&AddGroupMembersRequest{
		GroupID: "nonexistent-id",
		Members: []string{"A"},
	}))

	assertCode(t, err, connect.CodeNotFound)
}

func TestAddedMemberCanJoinExpenses(t *testing.T) {
	groupClient, ledgerClient := setupTestServer(t)
	ctx := context.Background()

	groupID := createGroup(t, groupClient, "Flat", "Alice", "Bob")

	expense := &RecordExpenseRequest{
		GroupID:        groupID,
		PayerID:        "Alice",
		Total:          "30",
		SplitKind:      "EQUAL",
		ParticipantIDs: []string{"Alice", "Bob", "Carol"},
	}

	_, err := ledgerClient.RecordExpense(ctx, connect.NewRequest(expense))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = groupClient.AddGroupMembers(ctx, connect.NewRequest(&AddGroupMembersRequest{
		GroupID: groupID,
		Members: []string{"Carol"},
	}))
	if err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}

	if _, err := ledgerClient.RecordExpense(ctx, connect.NewRequest(expense)); err != nil {
		t.Fatalf("RecordExpense after adding member failed: %v", err)
	}
}
