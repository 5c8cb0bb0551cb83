// Package wcftest provides a scriptable wcf.Client for tests.
package wcftest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// Fake is a wcf.Client whose behaviour is set per operation through the
// *Func fields. An unset field returns the zero value and no error.
//
// Fake records every call and counts calls that overlapped another call,
// which a correctly guarded client never sees.
type Fake struct {
	RefreshQRCodeFunc        func(ctx context.Context) (string, error)
	IsLoginFunc              func(ctx context.Context) (bool, error)
	GetSelfWxidFunc          func(ctx context.Context) (string, error)
	GetUserInfoFunc          func(ctx context.Context) (wcf.UserInfo, error)
	GetContactsFunc          func(ctx context.Context) ([]wcf.Contact, error)
	GetDBsFunc               func(ctx context.Context) ([]string, error)
	GetTablesFunc            func(ctx context.Context, db string) ([]wcf.DbTable, error)
	GetMsgTypesFunc          func(ctx context.Context) (map[int32]string, error)
	RefreshPyqFunc           func(ctx context.Context, id uint64) (bool, error)
	SendTextFunc             func(ctx context.Context, msg wcf.TextMsg) (bool, error)
	SendImageFunc            func(ctx context.Context, msg wcf.PathMsg) (bool, error)
	SendFileFunc             func(ctx context.Context, msg wcf.PathMsg) (bool, error)
	SendRichTextFunc         func(ctx context.Context, msg wcf.RichText) (bool, error)
	SendPatFunc              func(ctx context.Context, msg wcf.PatMsg) (bool, error)
	ForwardMsgFunc           func(ctx context.Context, msg wcf.ForwardMsg) (bool, error)
	SaveAudioFunc            func(ctx context.Context, msg wcf.AudioMsg) (string, error)
	DownloadAttachFunc       func(ctx context.Context, msg wcf.AttachMsg) (bool, error)
	DecryptImageFunc         func(ctx context.Context, msg wcf.DecPath) (string, error)
	RecvTransferFunc         func(ctx context.Context, msg wcf.Transfer) (bool, error)
	QuerySQLFunc             func(ctx context.Context, query wcf.DbQuery) ([]wcf.DbRow, error)
	AcceptNewFriendFunc      func(ctx context.Context, v wcf.Verification) (bool, error)
	AddChatroomMemberFunc    func(ctx context.Context, m wcf.MemberMgmt) (bool, error)
	InviteChatroomMemberFunc func(ctx context.Context, m wcf.MemberMgmt) (bool, error)
	DeleteChatroomMemberFunc func(ctx context.Context, m wcf.MemberMgmt) (bool, error)
	RevokeMsgFunc            func(ctx context.Context, id uint64) (bool, error)
	QueryRoomMemberFunc      func(ctx context.Context, roomID string) ([]wcf.RoomMember, error)

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	overlaps atomic.Int32
}

var _ wcf.Client = (*Fake)(nil)

// Calls returns the operation names invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Overlaps returns the number of calls that started while another call was
// still running.
func (f *Fake) Overlaps() int {
	return int(f.overlaps.Load())
}

func (f *Fake) enter(op string) func() {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	return func() { f.inFlight.Add(-1) }
}

func (f *Fake) RefreshQRCode(ctx context.Context) (string, error) {
	defer f.enter(wcf.OpRefreshQRCode)()
	if f.RefreshQRCodeFunc == nil {
		return "", nil
	}
	return f.RefreshQRCodeFunc(ctx)
}

func (f *Fake) IsLogin(ctx context.Context) (bool, error) {
	defer f.enter(wcf.OpIsLogin)()
	if f.IsLoginFunc == nil {
		return false, nil
	}
	return f.IsLoginFunc(ctx)
}

func (f *Fake) GetSelfWxid(ctx context.Context) (string, error) {
	defer f.enter(wcf.OpGetSelfWxid)()
	if f.GetSelfWxidFunc == nil {
		return "", nil
	}
	return f.GetSelfWxidFunc(ctx)
}

func (f *Fake) GetUserInfo(ctx context.Context) (wcf.UserInfo, error) {
	defer f.enter(wcf.OpGetUserInfo)()
	if f.GetUserInfoFunc == nil {
		return wcf.UserInfo{}, nil
	}
	return f.GetUserInfoFunc(ctx)
}

func (f *Fake) GetContacts(ctx context.Context) ([]wcf.Contact, error) {
	defer f.enter(wcf.OpGetContacts)()
	if f.GetContactsFunc == nil {
		return nil, nil
	}
	return f.GetContactsFunc(ctx)
}

func (f *Fake) GetDBs(ctx context.Context) ([]string, error) {
	defer f.enter(wcf.OpGetDBs)()
	if f.GetDBsFunc == nil {
		return nil, nil
	}
	return f.GetDBsFunc(ctx)
}

func (f *Fake) GetTables(ctx context.Context, db string) ([]wcf.DbTable, error) {
	defer f.enter(wcf.OpGetTables)()
	if f.GetTablesFunc == nil {
		return nil, nil
	}
	return f.GetTablesFunc(ctx, db)
}

func (f *Fake) GetMsgTypes(ctx context.Context) (map[int32]string, error) {
	defer f.enter(wcf.OpGetMsgTypes)()
	if f.GetMsgTypesFunc == nil {
		return nil, nil
	}
	return f.GetMsgTypesFunc(ctx)
}

func (f *Fake) RefreshPyq(ctx context.Context, id uint64) (bool, error) {
	defer f.enter(wcf.OpRefreshPyq)()
	if f.RefreshPyqFunc == nil {
		return false, nil
	}
	return f.RefreshPyqFunc(ctx, id)
}

func (f *Fake) SendText(ctx context.Context, msg wcf.TextMsg) (bool, error) {
	defer f.enter(wcf.OpSendText)()
	if f.SendTextFunc == nil {
		return false, nil
	}
	return f.SendTextFunc(ctx, msg)
}

func (f *Fake) SendImage(ctx context.Context, msg wcf.PathMsg) (bool, error) {
	defer f.enter(wcf.OpSendImage)()
	if f.SendImageFunc == nil {
		return false, nil
	}
	return f.SendImageFunc(ctx, msg)
}

func (f *Fake) SendFile(ctx context.Context, msg wcf.PathMsg) (bool, error) {
	defer f.enter(wcf.OpSendFile)()
	if f.SendFileFunc == nil {
		return false, nil
	}
	return f.SendFileFunc(ctx, msg)
}

func (f *Fake) SendRichText(ctx context.Context, msg wcf.RichText) (bool, error) {
	defer f.enter(wcf.OpSendRichText)()
	if f.SendRichTextFunc == nil {
		return false, nil
	}
	return f.SendRichTextFunc(ctx, msg)
}

func (f *Fake) SendPat(ctx context.Context, msg wcf.PatMsg) (bool, error) {
	defer f.enter(wcf.OpSendPat)()
	if f.SendPatFunc == nil {
		return false, nil
	}
	return f.SendPatFunc(ctx, msg)
}

func (f *Fake) ForwardMsg(ctx context.Context, msg wcf.ForwardMsg) (bool, error) {
	defer f.enter(wcf.OpForwardMsg)()
	if f.ForwardMsgFunc == nil {
		return false, nil
	}
	return f.ForwardMsgFunc(ctx, msg)
}

func (f *Fake) SaveAudio(ctx context.Context, msg wcf.AudioMsg) (string, error) {
	defer f.enter(wcf.OpSaveAudio)()
	if f.SaveAudioFunc == nil {
		return "", nil
	}
	return f.SaveAudioFunc(ctx, msg)
}

func (f *Fake) DownloadAttach(ctx context.Context, msg wcf.AttachMsg) (bool, error) {
	defer f.enter(wcf.OpDownloadAttach)()
	if f.DownloadAttachFunc == nil {
		return false, nil
	}
	return f.DownloadAttachFunc(ctx, msg)
}

func (f *Fake) DecryptImage(ctx context.Context, msg wcf.DecPath) (string, error) {
	defer f.enter(wcf.OpDecryptImage)()
	if f.DecryptImageFunc == nil {
		return "", nil
	}
	return f.DecryptImageFunc(ctx, msg)
}

func (f *Fake) RecvTransfer(ctx context.Context, msg wcf.Transfer) (bool, error) {
	defer f.enter(wcf.OpRecvTransfer)()
	if f.RecvTransferFunc == nil {
		return false, nil
	}
	return f.RecvTransferFunc(ctx, msg)
}

func (f *Fake) QuerySQL(ctx context.Context, query wcf.DbQuery) ([]wcf.DbRow, error) {
	defer f.enter(wcf.OpQuerySQL)()
	if f.QuerySQLFunc == nil {
		return nil, nil
	}
	return f.QuerySQLFunc(ctx, query)
}

func (f *Fake) AcceptNewFriend(ctx context.Context, v wcf.Verification) (bool, error) {
	defer f.enter(wcf.OpAcceptNewFriend)()
	if f.AcceptNewFriendFunc == nil {
		return false, nil
	}
	return f.AcceptNewFriendFunc(ctx, v)
}

func (f *Fake) AddChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	defer f.enter(wcf.OpAddChatroomMember)()
	if f.AddChatroomMemberFunc == nil {
		return false, nil
	}
	return f.AddChatroomMemberFunc(ctx, m)
}

func (f *Fake) InviteChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	defer f.enter(wcf.OpInviteChatroomMember)()
	if f.InviteChatroomMemberFunc == nil {
		return false, nil
	}
	return f.InviteChatroomMemberFunc(ctx, m)
}

func (f *Fake) DeleteChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	defer f.enter(wcf.OpDeleteChatroomMember)()
	if f.DeleteChatroomMemberFunc == nil {
		return false, nil
	}
	return f.DeleteChatroomMemberFunc(ctx, m)
}

func (f *Fake) RevokeMsg(ctx context.Context, id uint64) (bool, error) {
	defer f.enter(wcf.OpRevokeMsg)()
	if f.RevokeMsgFunc == nil {
		return false, nil
	}
	return f.RevokeMsgFunc(ctx, id)
}

func (f *Fake) QueryRoomMember(ctx context.Context, roomID string) ([]wcf.RoomMember, error) {
	defer f.enter(wcf.OpQueryRoomMember)()
	if f.QueryRoomMemberFunc == nil {
		return nil, nil
	}
	return f.QueryRoomMemberFunc(ctx, roomID)
}
