package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// LedgerServiceName is the fully-qualified name of the ledger service.
	LedgerServiceName = "splitledger.v1.LedgerService"
	// GroupServiceName is the fully-qualified name of the group directory service.
	GroupServiceName = "splitledger.v1.GroupService"
)

const (
	LedgerServiceRecordExpenseProcedure     = "/splitledger.v1.LedgerService/RecordExpense"
	LedgerServiceRecordSettlementProcedure  = "/splitledger.v1.LedgerService/RecordSettlement"
	LedgerServiceGetHistoryProcedure        = "/splitledger.v1.LedgerService/GetHistory"
	LedgerServiceGetGroupBalancesProcedure  = "/splitledger.v1.LedgerService/GetGroupBalances"
	LedgerServiceGetMemberBalanceProcedure  = "/splitledger.v1.LedgerService/GetMemberBalance"
	LedgerServiceGetSettlementPlanProcedure = "/splitledger.v1.LedgerService/GetSettlementPlan"

	GroupServiceCreateGroupProcedure     = "/splitledger.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure        = "/splitledger.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure      = "/splitledger.v1.GroupService/ListGroups"
	GroupServiceAddGroupMembersProcedure = "/splitledger.v1.GroupService/AddGroupMembers"
)

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService
// procedure. It returns the path to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceRecordExpenseProcedure,
		connect.NewUnaryHandler(LedgerServiceRecordExpenseProcedure, svc.RecordExpense, opts...))
	mux.Handle(LedgerServiceRecordSettlementProcedure,
		connect.NewUnaryHandler(LedgerServiceRecordSettlementProcedure, svc.RecordSettlement, opts...))
	mux.Handle(LedgerServiceGetHistoryProcedure,
		connect.NewUnaryHandler(LedgerServiceGetHistoryProcedure, svc.GetHistory, opts...))
	mux.Handle(LedgerServiceGetGroupBalancesProcedure,
		connect.NewUnaryHandler(LedgerServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(LedgerServiceGetMemberBalanceProcedure,
		connect.NewUnaryHandler(LedgerServiceGetMemberBalanceProcedure, svc.GetMemberBalance, opts...))
	mux.Handle(LedgerServiceGetSettlementPlanProcedure,
		connect.NewUnaryHandler(LedgerServiceGetSettlementPlanProcedure, svc.GetSettlementPlan, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// NewGroupServiceHandler builds an HTTP handler for every GroupService
// procedure. It returns the path to mount the handler on.
func NewGroupServiceHandler(svc *GroupService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure,
		connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure,
		connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure,
		connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddGroupMembersProcedure,
		connect.NewUnaryHandler(GroupServiceAddGroupMembersProcedure, svc.AddGroupMembers, opts...))
	return "/" + GroupServiceName + "/", mux
}

func withJSON(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	recordExpense     *connect.Client[RecordExpenseRequest, RecordExpenseResponse]
	recordSettlement  *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	getHistory        *connect.Client[GetHistoryRequest, GetHistoryResponse]
	getGroupBalances  *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	getMemberBalance  *connect.Client[GetMemberBalanceRequest, GetMemberBalanceResponse]
	getSettlementPlan *connect.Client[GetSettlementPlanRequest, GetSettlementPlanResponse]
}

// NewLedgerServiceClient creates a client for the server at baseURL
// (e.g., "http://localhost:8080").
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &LedgerServiceClient{
		recordExpense: connect.NewClient[RecordExpenseRequest, RecordExpenseResponse](
			httpClient, baseURL+LedgerServiceRecordExpenseProcedure, opts...),
		recordSettlement: connect.NewClient[RecordSettlementRequest, RecordSettlementResponse](
			httpClient, baseURL+LedgerServiceRecordSettlementProcedure, opts...),
		getHistory: connect.NewClient[GetHistoryRequest, GetHistoryResponse](
			httpClient, baseURL+LedgerServiceGetHistoryProcedure, opts...),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](
			httpClient, baseURL+LedgerServiceGetGroupBalancesProcedure, opts...),
		getMemberBalance: connect.NewClient[GetMemberBalanceRequest, GetMemberBalanceResponse](
			httpClient, baseURL+LedgerServiceGetMemberBalanceProcedure, opts...),
		getSettlementPlan: connect.NewClient[GetSettlementPlanRequest, GetSettlementPlanResponse](
			httpClient, baseURL+LedgerServiceGetSettlementPlanProcedure, opts...),
	}
}

func (c *LedgerServiceClient) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[RecordExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error) {
	return c.getHistory.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetMemberBalance(ctx context.Context, req *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error) {
	return c.getMemberBalance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSettlementPlan(ctx context.Context, req *connect.Request[GetSettlementPlanRequest]) (*connect.Response[GetSettlementPlanResponse], error) {
	return c.getSettlementPlan.CallUnary(ctx, req)
}

// GroupServiceClient calls a remote GroupService.
type GroupServiceClient struct {
	createGroup     *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup        *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups      *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addGroupMembers *connect.Client[AddGroupMembersRequest, AddGroupMembersResponse]
}

// NewGroupServiceClient creates a client for the server at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &GroupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, CreateGroupResponse](
			httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup: connect.NewClient[GetGroupRequest, GetGroupResponse](
			httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups: connect.NewClient[ListGroupsRequest, ListGroupsResponse](
			httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addGroupMembers: connect.NewClient[AddGroupMembersRequest, AddGroupMembersResponse](
			httpClient, baseURL+GroupServiceAddGroupMembersProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddGroupMembers(ctx context.Context, req *connect.Request[AddGroupMembersRequest]) (*connect.Response[AddGroupMembersResponse], error) {
	return c.addGroupMembers.CallUnary(ctx, req)
}
