package wcf

// TextMsg sends a text message. Aters is a comma-separated wxid list for
// @-mentions in chat rooms ("notify@all" mentions everyone).
type TextMsg struct {
	Msg      string `json:"msg"`
	Receiver string `json:"receiver"`
	Aters    string `json:"aters"`
}

// PathMsg sends an image or file from a local path.
//
// For images, Base64 may carry the content instead, or Path may be an
// http(s) URL; the gateway stages either to a local file first.
type PathMsg struct {
	Path     string `json:"path"`
	Receiver string `json:"receiver"`
	Base64   string `json:"base64,omitempty"`
}

// RichText sends a card message.
type RichText struct {
	Name     string `json:"name"`
	Account  string `json:"account"`
	Title    string `json:"title"`
	Digest   string `json:"digest"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumburl"`
	Receiver string `json:"receiver"`
}

// PatMsg pats a member of a chat room.
type PatMsg struct {
	RoomID string `json:"roomid"`
	Wxid   string `json:"wxid"`
}

// ForwardMsg forwards an existing message.
type ForwardMsg struct {
	ID       uint64 `json:"id"`
	Receiver string `json:"receiver"`
}

// AudioMsg saves a voice message into Dir.
type AudioMsg struct {
	ID  uint64 `json:"id"`
	Dir string `json:"dir"`
}

// AttachMsg identifies a message attachment to download.
// Extra is the opaque locator carried by the message.
type AttachMsg struct {
	ID    uint64 `json:"id"`
	Thumb string `json:"thumb"`
	Extra string `json:"extra"`
}

// DecPath asks for a downloaded image to be decrypted from Src into the
// directory Dst.
type DecPath struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Transfer identifies a money transfer to accept.
type Transfer struct {
	Wxid string `json:"wxid"`
	TfID string `json:"tfid"`
	TaID string `json:"taid"`
}

// DbQuery runs SQL against one of the session databases.
type DbQuery struct {
	DB  string `json:"db"`
	SQL string `json:"sql"`
}

// SQLite fundamental datatypes, as reported in DbField.Type.
const (
	FieldInteger int32 = 1
	FieldFloat   int32 = 2
	FieldText    int32 = 3
	FieldBlob    int32 = 4
	FieldNull    int32 = 5
)

// DbField is one column of a query row. Content is the raw value: decimal
// text for integers and floats, UTF-8 bytes for text, raw bytes for blobs.
type DbField struct {
	Type    int32  `json:"type"`
	Column  string `json:"column"`
	Content []byte `json:"content"`
}

// DbRow is one result row in column order.
type DbRow struct {
	Fields []DbField `json:"fields"`
}

// DbTable is a table name and its CREATE statement.
type DbTable struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// Contact is one entry of the contact list.
type Contact struct {
	Wxid     string `json:"wxid"`
	Code     string `json:"code"`
	Remark   string `json:"remark"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Province string `json:"province"`
	City     string `json:"city"`
	Gender   int32  `json:"gender"`
}

// UserInfo describes the logged-in account.
type UserInfo struct {
	Wxid   string `json:"wxid"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Home   string `json:"home"`
}

// Verification accepts a friend request.
type Verification struct {
	V3    string `json:"v3"`
	V4    string `json:"v4"`
	Scene int32  `json:"scene"`
}

// MemberMgmt adds, invites or removes chat room members.
// Wxids is a comma-separated list.
type MemberMgmt struct {
	RoomID string `json:"roomid"`
	Wxids  string `json:"wxids"`
}

// RoomMember is a member of a chat room.
type RoomMember struct {
	Wxid  string `json:"wxid"`
	Name  string `json:"name"`
	State int32  `json:"state"`
}

// Message is a message captured by the backend and relayed to WebSocket
// subscribers.
type Message struct {
	ID        uint64 `json:"id"`
	Type      uint32 `json:"type"`
	IsSelf    bool   `json:"is_self"`
	IsGroup   bool   `json:"is_group"`
	Timestamp uint32 `json:"ts"`
	RoomID    string `json:"roomid"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Thumb     string `json:"thumb"`
	Extra     string `json:"extra"`
	XML       string `json:"xml"`
}
