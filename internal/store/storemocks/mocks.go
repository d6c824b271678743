// Package storemocks provides hand-written gomock-style mocks of the
// store.AccountStore and store.BlockStore interfaces, in the shape
// `mockgen` would generate. They're written by hand here because the
// module's build toolchain isn't invoked to run mockgen, but they follow
// go.uber.org/mock's generated-code conventions exactly so engine tests
// read the same way they would against generated mocks.
package storemocks

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// MockAccountStore is a mock of the store.AccountStore interface.
type MockAccountStore struct {
	ctrl     *gomock.Controller
	recorder *MockAccountStoreMockRecorder
}

// MockAccountStoreMockRecorder is the recorder for MockAccountStore.
type MockAccountStoreMockRecorder struct {
	mock *MockAccountStore
}

// NewMockAccountStore creates a new mock instance.
func NewMockAccountStore(ctrl *gomock.Controller) *MockAccountStore {
	mock := &MockAccountStore{ctrl: ctrl}
	mock.recorder = &MockAccountStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAccountStore) EXPECT() *MockAccountStoreMockRecorder {
	return m.recorder
}

// Merge mocks base method.
func (m *MockAccountStore) Merge(ctx context.Context, tx store.Txn, address string, diff models.AccountDiff) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Merge", ctx, tx, address, diff)
	ret0, _ := ret[0].(error)
	return ret0
}

// Merge indicates an expected call of Merge.
func (mr *MockAccountStoreMockRecorder) Merge(ctx, tx, address, diff interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Merge", reflect.TypeOf((*MockAccountStore)(nil).Merge), ctx, tx, address, diff)
}

// Get mocks base method.
func (m *MockAccountStore) Get(ctx context.Context, tx store.Txn, filter models.AccountFilter) (*models.Account, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, tx, filter)
	ret0, _ := ret[0].(*models.Account)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockAccountStoreMockRecorder) Get(ctx, tx, filter interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockAccountStore)(nil).Get), ctx, tx, filter)
}

// GetAll mocks base method.
func (m *MockAccountStore) GetAll(ctx context.Context, tx store.Txn, filter models.AccountFilter) ([]*models.Account, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx, tx, filter)
	ret0, _ := ret[0].([]*models.Account)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockAccountStoreMockRecorder) GetAll(ctx, tx, filter interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockAccountStore)(nil).GetAll), ctx, tx, filter)
}

// GenerateAddress mocks base method.
func (m *MockAccountStore) GenerateAddress(publicKey []byte) string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GenerateAddress", publicKey)
	ret0, _ := ret[0].(string)
	return ret0
}

// GenerateAddress indicates an expected call of GenerateAddress.
func (mr *MockAccountStoreMockRecorder) GenerateAddress(publicKey interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GenerateAddress", reflect.TypeOf((*MockAccountStore)(nil).GenerateAddress), publicKey)
}

// MockBlockStore is a mock of the store.BlockStore interface.
type MockBlockStore struct {
	ctrl     *gomock.Controller
	recorder *MockBlockStoreMockRecorder
}

// MockBlockStoreMockRecorder is the recorder for MockBlockStore.
type MockBlockStoreMockRecorder struct {
	mock *MockBlockStore
}

// NewMockBlockStore creates a new mock instance.
func NewMockBlockStore(ctrl *gomock.Controller) *MockBlockStore {
	mock := &MockBlockStore{ctrl: ctrl}
	mock.recorder = &MockBlockStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBlockStore) EXPECT() *MockBlockStoreMockRecorder {
	return m.recorder
}

// SumRound mocks base method.
func (m *MockBlockStore) SumRound(ctx context.Context, tx store.Txn, n int, round uint64) (models.RoundSum, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SumRound", ctx, tx, n, round)
	ret0, _ := ret[0].(models.RoundSum)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SumRound indicates an expected call of SumRound.
func (mr *MockBlockStoreMockRecorder) SumRound(ctx, tx, n, round interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SumRound", reflect.TypeOf((*MockBlockStore)(nil).SumRound), ctx, tx, n, round)
}

// Find mocks base method.
func (m *MockBlockStore) Find(ctx context.Context, tx store.Txn, height uint64) (*models.Block, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Find", ctx, tx, height)
	ret0, _ := ret[0].(*models.Block)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Find indicates an expected call of Find.
func (mr *MockBlockStoreMockRecorder) Find(ctx, tx, height interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Find", reflect.TypeOf((*MockBlockStore)(nil).Find), ctx, tx, height)
}

// TruncateBlocks mocks base method.
func (m *MockBlockStore) TruncateBlocks(ctx context.Context, tx store.Txn, fromHeight uint64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "TruncateBlocks", ctx, tx, fromHeight)
	ret0, _ := ret[0].(error)
	return ret0
}

// TruncateBlocks indicates an expected call of TruncateBlocks.
func (mr *MockBlockStoreMockRecorder) TruncateBlocks(ctx, tx, fromHeight interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TruncateBlocks", reflect.TypeOf((*MockBlockStore)(nil).TruncateBlocks), ctx, tx, fromHeight)
}

// MarkBlockID mocks base method.
func (m *MockBlockStore) MarkBlockID(ctx context.Context, tx store.Txn, height uint64, id string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkBlockID", ctx, tx, height, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkBlockID indicates an expected call of MarkBlockID.
func (mr *MockBlockStoreMockRecorder) MarkBlockID(ctx, tx, height, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkBlockID", reflect.TypeOf((*MockBlockStore)(nil).MarkBlockID), ctx, tx, height, id)
}
