package wcf

import "context"

// Operation names. They label log entries and telemetry and double as the
// request op on the MQTT bridge protocol.
const (
	OpRefreshQRCode        = "refresh_qrcode"
	OpIsLogin              = "is_login"
	OpGetSelfWxid          = "get_self_wxid"
	OpGetUserInfo          = "get_user_info"
	OpGetContacts          = "get_contacts"
	OpGetDBs               = "get_dbs"
	OpGetTables            = "get_tables"
	OpGetMsgTypes          = "get_msg_types"
	OpRefreshPyq           = "refresh_pyq"
	OpSendText             = "send_text"
	OpSendImage            = "send_image"
	OpSendFile             = "send_file"
	OpSendRichText         = "send_rich_text"
	OpSendPat              = "send_pat"
	OpForwardMsg           = "forward_msg"
	OpSaveAudio            = "save_audio"
	OpDownloadAttach       = "download_attach"
	OpDecryptImage         = "decrypt_image"
	OpRecvTransfer         = "recv_transfer"
	OpQuerySQL             = "query_sql"
	OpAcceptNewFriend      = "accept_new_friend"
	OpAddChatroomMember    = "add_chatroom_member"
	OpInviteChatroomMember = "invite_chatroom_member"
	OpDeleteChatroomMember = "delete_chatroom_member"
	OpRevokeMsg            = "revoke_msg"
	OpQueryRoomMember      = "query_room_member"
)

// Client is one WCF session. Implementations need not be safe for
// concurrent use; wrap them in a Guard.
//
// Every method makes exactly one backend round trip. ctx bounds the round
// trip where the transport allows it.
type Client interface {
	RefreshQRCode(ctx context.Context) (string, error)
	IsLogin(ctx context.Context) (bool, error)
	GetSelfWxid(ctx context.Context) (string, error)
	GetUserInfo(ctx context.Context) (UserInfo, error)
	GetContacts(ctx context.Context) ([]Contact, error)
	GetDBs(ctx context.Context) ([]string, error)
	GetTables(ctx context.Context, db string) ([]DbTable, error)
	GetMsgTypes(ctx context.Context) (map[int32]string, error)
	RefreshPyq(ctx context.Context, id uint64) (bool, error)

	SendText(ctx context.Context, msg TextMsg) (bool, error)
	SendImage(ctx context.Context, msg PathMsg) (bool, error)
	SendFile(ctx context.Context, msg PathMsg) (bool, error)
	SendRichText(ctx context.Context, msg RichText) (bool, error)
	SendPat(ctx context.Context, msg PatMsg) (bool, error)
	ForwardMsg(ctx context.Context, msg ForwardMsg) (bool, error)

	// SaveAudio writes a voice message into msg.Dir and returns the file path.
	SaveAudio(ctx context.Context, msg AudioMsg) (string, error)

	// DownloadAttach asks the session to fetch an attachment. true means the
	// job was accepted; the file appears asynchronously.
	DownloadAttach(ctx context.Context, msg AttachMsg) (bool, error)

	// DecryptImage returns the decrypted image path, or "" while the
	// download is still in progress.
	DecryptImage(ctx context.Context, msg DecPath) (string, error)

	RecvTransfer(ctx context.Context, msg Transfer) (bool, error)
	QuerySQL(ctx context.Context, query DbQuery) ([]DbRow, error)

	AcceptNewFriend(ctx context.Context, v Verification) (bool, error)
	AddChatroomMember(ctx context.Context, m MemberMgmt) (bool, error)
	InviteChatroomMember(ctx context.Context, m MemberMgmt) (bool, error)
	DeleteChatroomMember(ctx context.Context, m MemberMgmt) (bool, error)
	RevokeMsg(ctx context.Context, id uint64) (bool, error)

	// QueryRoomMember returns nil, nil when the room is unknown.
	QueryRoomMember(ctx context.Context, roomID string) ([]RoomMember, error)
}

// MessageHandler receives captured messages.
type MessageHandler func(msg Message)

// MessageSource is implemented by backends that capture incoming messages.
type MessageSource interface {
	OnMessage(handler MessageHandler)
}
