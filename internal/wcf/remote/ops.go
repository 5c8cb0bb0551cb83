package remote

import (
	"context"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

func (c *Client) RefreshQRCode(ctx context.Context) (string, error) {
	return call[string](ctx, c, wcf.OpRefreshQRCode, nil)
}

func (c *Client) IsLogin(ctx context.Context) (bool, error) {
	return call[bool](ctx, c, wcf.OpIsLogin, nil)
}

func (c *Client) GetSelfWxid(ctx context.Context) (string, error) {
	return call[string](ctx, c, wcf.OpGetSelfWxid, nil)
}

func (c *Client) GetUserInfo(ctx context.Context) (wcf.UserInfo, error) {
	return call[wcf.UserInfo](ctx, c, wcf.OpGetUserInfo, nil)
}

func (c *Client) GetContacts(ctx context.Context) ([]wcf.Contact, error) {
	return call[[]wcf.Contact](ctx, c, wcf.OpGetContacts, nil)
}

func (c *Client) GetDBs(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, c, wcf.OpGetDBs, nil)
}

func (c *Client) GetTables(ctx context.Context, db string) ([]wcf.DbTable, error) {
	return call[[]wcf.DbTable](ctx, c, wcf.OpGetTables, dbParams{DB: db})
}

func (c *Client) GetMsgTypes(ctx context.Context) (map[int32]string, error) {
	return call[map[int32]string](ctx, c, wcf.OpGetMsgTypes, nil)
}

func (c *Client) RefreshPyq(ctx context.Context, id uint64) (bool, error) {
	return call[bool](ctx, c, wcf.OpRefreshPyq, idParams{ID: id})
}

func (c *Client) SendText(ctx context.Context, msg wcf.TextMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpSendText, msg)
}

func (c *Client) SendImage(ctx context.Context, msg wcf.PathMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpSendImage, msg)
}

func (c *Client) SendFile(ctx context.Context, msg wcf.PathMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpSendFile, msg)
}

func (c *Client) SendRichText(ctx context.Context, msg wcf.RichText) (bool, error) {
	return call[bool](ctx, c, wcf.OpSendRichText, msg)
}

func (c *Client) SendPat(ctx context.Context, msg wcf.PatMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpSendPat, msg)
}

func (c *Client) ForwardMsg(ctx context.Context, msg wcf.ForwardMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpForwardMsg, msg)
}

func (c *Client) SaveAudio(ctx context.Context, msg wcf.AudioMsg) (string, error) {
	return call[string](ctx, c, wcf.OpSaveAudio, msg)
}

func (c *Client) DownloadAttach(ctx context.Context, msg wcf.AttachMsg) (bool, error) {
	return call[bool](ctx, c, wcf.OpDownloadAttach, msg)
}

func (c *Client) DecryptImage(ctx context.Context, msg wcf.DecPath) (string, error) {
	return call[string](ctx, c, wcf.OpDecryptImage, msg)
}

func (c *Client) RecvTransfer(ctx context.Context, msg wcf.Transfer) (bool, error) {
	return call[bool](ctx, c, wcf.OpRecvTransfer, msg)
}

func (c *Client) QuerySQL(ctx context.Context, query wcf.DbQuery) ([]wcf.DbRow, error) {
	return call[[]wcf.DbRow](ctx, c, wcf.OpQuerySQL, query)
}

func (c *Client) AcceptNewFriend(ctx context.Context, v wcf.Verification) (bool, error) {
	return call[bool](ctx, c, wcf.OpAcceptNewFriend, v)
}

func (c *Client) AddChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	return call[bool](ctx, c, wcf.OpAddChatroomMember, m)
}

func (c *Client) InviteChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	return call[bool](ctx, c, wcf.OpInviteChatroomMember, m)
}

func (c *Client) DeleteChatroomMember(ctx context.Context, m wcf.MemberMgmt) (bool, error) {
	return call[bool](ctx, c, wcf.OpDeleteChatroomMember, m)
}

func (c *Client) RevokeMsg(ctx context.Context, id uint64) (bool, error) {
	return call[bool](ctx, c, wcf.OpRevokeMsg, idParams{ID: id})
}

// QueryRoomMember decodes a null result (room unknown to the bridge) as nil.
func (c *Client) QueryRoomMember(ctx context.Context, roomID string) ([]wcf.RoomMember, error) {
	return call[[]wcf.RoomMember](ctx, c, wcf.OpQueryRoomMember, roomParams{RoomID: roomID})
}
