package simulator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/database"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

const (
	outputFilePermissions = 0o640

	// sqlTimeFormat renders DATETIME columns the way SQLite stores them.
	sqlTimeFormat = "2006-01-02 15:04:05"
)

// Errors returned by the simulator.
var (
	ErrUnknownDB = errors.New("simulator: unknown database")
	ErrNoDir     = errors.New("simulator: destination directory does not exist")
)

// Sent is one outgoing operation recorded in the outbox.
type Sent struct {
	Op       string
	Receiver string
	Payload  any
}

// Simulator implements wcf.Client and wcf.MessageSource.
//
// Thread Safety:
//   - Safe for concurrent use, although the gateway serialises calls anyway.
type Simulator struct {
	cfg    config.SimulatorConfig
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	polls    map[string]int
	outbox   []Sent
	rooms    map[string][]wcf.RoomMember
	handlers []wcf.MessageHandler
	nextID   uint64
}

var (
	_ wcf.Client        = (*Simulator)(nil)
	_ wcf.MessageSource = (*Simulator)(nil)
)

// New returns a simulator serving cfg.
func New(cfg config.SimulatorConfig, logger *logging.Logger) *Simulator {
	s := &Simulator{
		cfg:    cfg,
		logger: logger.With("component", "simulator"),
		now:    time.Now,
		polls:  make(map[string]int),
		rooms:  make(map[string][]wcf.RoomMember),
		nextID: 1,
	}
	for _, room := range cfg.Rooms {
		members := make([]wcf.RoomMember, 0, len(room.Members))
		for _, m := range room.Members {
			members = append(members, wcf.RoomMember{Wxid: m.Wxid, Name: m.Name})
		}
		s.rooms[room.ID] = members
	}
	return s
}

// ─── Session ───────────────────────────────────────────────────────

// RefreshQRCode returns "" because the simulated account is always logged in.
func (s *Simulator) RefreshQRCode(context.Context) (string, error) { return "", nil }

func (s *Simulator) IsLogin(context.Context) (bool, error) { return true, nil }

func (s *Simulator) GetSelfWxid(context.Context) (string, error) { return s.cfg.SelfWxid, nil }

func (s *Simulator) GetUserInfo(context.Context) (wcf.UserInfo, error) {
	return wcf.UserInfo{
		Wxid: s.cfg.SelfWxid,
		Name: s.cfg.SelfName,
		Home: s.cfg.DataDir,
	}, nil
}

func (s *Simulator) GetContacts(context.Context) ([]wcf.Contact, error) {
	contacts := make([]wcf.Contact, 0, len(s.cfg.Contacts))
	for _, c := range s.cfg.Contacts {
		contacts = append(contacts, wcf.Contact{Wxid: c.Wxid, Name: c.Name, Remark: c.Remark})
	}
	return contacts, nil
}

func (s *Simulator) GetMsgTypes(context.Context) (map[int32]string, error) {
	out := make(map[int32]string, len(msgTypes))
	for k, v := range msgTypes {
		out[k] = v
	}
	return out, nil
}

func (s *Simulator) RefreshPyq(_ context.Context, id uint64) (bool, error) {
	s.record(wcf.OpRefreshPyq, "", id)
	return true, nil
}

// ─── Databases ─────────────────────────────────────────────────────

// GetDBs lists the *.db files in data_dir by name.
func (s *Simulator) GetDBs(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".db") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Simulator) GetTables(ctx context.Context, db string) ([]wcf.DbTable, error) {
	conn, err := s.open(db)
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // read-only

	tables, err := conn.Tables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]wcf.DbTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, wcf.DbTable{Name: t.Name, SQL: t.SQL})
	}
	return out, nil
}

// QuerySQL runs query.SQL read-only and reports each value with its
// SQLite storage class.
func (s *Simulator) QuerySQL(ctx context.Context, query wcf.DbQuery) ([]wcf.DbRow, error) {
	conn, err := s.open(query.DB)
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // read-only

	cells, err := conn.QueryCells(ctx, query.SQL)
	if err != nil {
		return nil, err
	}
	rows := make([]wcf.DbRow, 0, len(cells))
	for _, row := range cells {
		fields := make([]wcf.DbField, 0, len(row))
		for _, c := range row {
			tag, content := encodeCell(c.Value)
			fields = append(fields, wcf.DbField{Type: tag, Column: c.Column, Content: content})
		}
		rows = append(rows, wcf.DbRow{Fields: fields})
	}
	return rows, nil
}

// open resolves a database name within data_dir. Names may not contain
// path separators.
func (s *Simulator) open(name string) (*database.DB, error) {
	if name == "" || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDB, name)
	}
	db, err := database.Open(database.Config{
		Path:        filepath.Join(s.cfg.DataDir, name),
		ReadOnly:    true,
		BusyTimeout: 1,
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDB, name)
	}
	return db, err
}

// encodeCell maps a driver value to its type tag and raw content.
func encodeCell(v any) (int32, []byte) {
	switch x := v.(type) {
	case nil:
		return wcf.FieldNull, nil
	case int64:
		return wcf.FieldInteger, strconv.AppendInt(nil, x, 10)
	case bool:
		if x {
			return wcf.FieldInteger, []byte("1")
		}
		return wcf.FieldInteger, []byte("0")
	case float64:
		return wcf.FieldFloat, strconv.AppendFloat(nil, x, 'g', -1, 64)
	case string:
		return wcf.FieldText, []byte(x)
	case []byte:
		return wcf.FieldBlob, x
	case time.Time:
		return wcf.FieldText, []byte(x.UTC().Format(sqlTimeFormat))
	default:
		return wcf.FieldText, []byte(fmt.Sprint(x))
	}
}

// ─── Messages ──────────────────────────────────────────────────────

func (s *Simulator) SendText(_ context.Context, msg wcf.TextMsg) (bool, error) {
	s.record(wcf.OpSendText, msg.Receiver, msg)
	s.echo(wcf.Message{Type: 1, Content: msg.Msg}, msg.Receiver)
	return true, nil
}

// SendImage fails with false if the image does not exist locally.
func (s *Simulator) SendImage(_ context.Context, msg wcf.PathMsg) (bool, error) {
	if !fileExists(msg.Path) {
		return false, nil
	}
	s.record(wcf.OpSendImage, msg.Receiver, msg)
	s.echo(wcf.Message{Type: 3, Extra: msg.Path}, msg.Receiver)
	return true, nil
}

func (s *Simulator) SendFile(_ context.Context, msg wcf.PathMsg) (bool, error) {
	if !fileExists(msg.Path) {
		return false, nil
	}
	s.record(wcf.OpSendFile, msg.Receiver, msg)
	s.echo(wcf.Message{Type: 49, Extra: msg.Path}, msg.Receiver)
	return true, nil
}

func (s *Simulator) SendRichText(_ context.Context, msg wcf.RichText) (bool, error) {
	s.record(wcf.OpSendRichText, msg.Receiver, msg)
	s.echo(wcf.Message{Type: 49, Content: msg.Title}, msg.Receiver)
	return true, nil
}

func (s *Simulator) SendPat(_ context.Context, msg wcf.PatMsg) (bool, error) {
	s.record(wcf.OpSendPat, msg.RoomID, msg)
	return true, nil
}

func (s *Simulator) ForwardMsg(_ context.Context, msg wcf.ForwardMsg) (bool, error) {
	s.record(wcf.OpForwardMsg, msg.Receiver, msg)
	return true, nil
}

func (s *Simulator) RevokeMsg(_ context.Context, id uint64) (bool, error) {
	s.record(wcf.OpRevokeMsg, "", id)
	return true, nil
}

func (s *Simulator) RecvTransfer(_ context.Context, msg wcf.Transfer) (bool, error) {
	s.record(wcf.OpRecvTransfer, msg.Wxid, msg)
	return true, nil
}

func (s *Simulator) AcceptNewFriend(_ context.Context, v wcf.Verification) (bool, error) {
	s.record(wcf.OpAcceptNewFriend, "", v)
	return true, nil
}

// ─── Attachments ───────────────────────────────────────────────────

// SaveAudio writes an empty {dir}/{id}.mp3; the simulator has no voice data.
func (s *Simulator) SaveAudio(_ context.Context, msg wcf.AudioMsg) (string, error) {
	if !dirExists(msg.Dir) {
		return "", fmt.Errorf("%w: %s", ErrNoDir, msg.Dir)
	}
	path := filepath.Join(msg.Dir, strconv.FormatUint(msg.ID, 10)+".mp3")
	if err := os.WriteFile(path, nil, outputFilePermissions); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	return path, nil
}

// DownloadAttach accepts the job if msg.Extra exists and restarts the
// decrypt countdown for it.
func (s *Simulator) DownloadAttach(_ context.Context, msg wcf.AttachMsg) (bool, error) {
	if !fileExists(msg.Extra) {
		return false, nil
	}
	s.mu.Lock()
	s.polls[msg.Extra] = 0
	s.mu.Unlock()
	return true, nil
}

// DecryptImage answers "" for the first decrypt_delay polls of a source,
// then writes the decoded image into msg.Dst and returns its path.
func (s *Simulator) DecryptImage(_ context.Context, msg wcf.DecPath) (string, error) {
	s.mu.Lock()
	n := s.polls[msg.Src]
	ready := n >= s.cfg.DecryptDelay
	if !ready {
		s.polls[msg.Src] = n + 1
	}
	s.mu.Unlock()
	if !ready {
		return "", nil
	}

	if !dirExists(msg.Dst) {
		return "", fmt.Errorf("%w: %s", ErrNoDir, msg.Dst)
	}
	data, err := os.ReadFile(msg.Src)
	if err != nil {
		return "", fmt.Errorf("reading attachment: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(msg.Src), filepath.Ext(msg.Src))
	ext := strings.TrimPrefix(filepath.Ext(msg.Src), ".")
	if strings.EqualFold(ext, "dat") {
		key, detected, err := detectXOR(data)
		if err != nil {
			return "", err
		}
		data = xorBytes(data, key)
		ext = detected
	}

	out := filepath.Join(msg.Dst, base+"."+ext)
	if err := os.WriteFile(out, data, outputFilePermissions); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return out, nil
}

// ─── Chat rooms ────────────────────────────────────────────────────

// QueryRoomMember returns nil for rooms that are not configured.
func (s *Simulator) QueryRoomMember(_ context.Context, roomID string) ([]wcf.RoomMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return append([]wcf.RoomMember{}, members...), nil
}

func (s *Simulator) AddChatroomMember(_ context.Context, m wcf.MemberMgmt) (bool, error) {
	return s.addMembers(wcf.OpAddChatroomMember, m), nil
}

func (s *Simulator) InviteChatroomMember(_ context.Context, m wcf.MemberMgmt) (bool, error) {
	return s.addMembers(wcf.OpInviteChatroomMember, m), nil
}

func (s *Simulator) DeleteChatroomMember(_ context.Context, m wcf.MemberMgmt) (bool, error) {
	s.mu.Lock()
	members, ok := s.rooms[m.RoomID]
	if ok {
		drop := wxidSet(m.Wxids)
		kept := members[:0]
		for _, member := range members {
			if _, gone := drop[member.Wxid]; !gone {
				kept = append(kept, member)
			}
		}
		s.rooms[m.RoomID] = kept
	}
	s.mu.Unlock()

	if ok {
		s.record(wcf.OpDeleteChatroomMember, m.RoomID, m)
	}
	return ok, nil
}

func (s *Simulator) addMembers(op string, m wcf.MemberMgmt) bool {
	s.mu.Lock()
	members, ok := s.rooms[m.RoomID]
	if ok {
		present := make(map[string]struct{}, len(members))
		for _, member := range members {
			present[member.Wxid] = struct{}{}
		}
		for _, wxid := range splitWxids(m.Wxids) {
			if _, dup := present[wxid]; dup {
				continue
			}
			present[wxid] = struct{}{}
			members = append(members, wcf.RoomMember{Wxid: wxid, Name: s.contactName(wxid)})
		}
		s.rooms[m.RoomID] = members
	}
	s.mu.Unlock()

	if ok {
		s.record(op, m.RoomID, m)
	}
	return ok
}

func (s *Simulator) contactName(wxid string) string {
	for _, c := range s.cfg.Contacts {
		if c.Wxid == wxid {
			return c.Name
		}
	}
	return ""
}

// ─── Outbox & events ───────────────────────────────────────────────

// OnMessage registers a handler for captured messages.
func (s *Simulator) OnMessage(handler wcf.MessageHandler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, handler)
	s.mu.Unlock()
}

// Inject delivers msg to every handler as if it had been received.
// A zero ID or timestamp is filled in.
func (s *Simulator) Inject(msg wcf.Message) {
	s.mu.Lock()
	if msg.ID == 0 {
		msg.ID = s.nextID
		s.nextID++
	}
	handlers := append([]wcf.MessageHandler(nil), s.handlers...)
	s.mu.Unlock()

	if msg.Timestamp == 0 {
		msg.Timestamp = uint32(s.now().Unix()) // #nosec G115 -- seconds fit until 2106
	}
	msg.IsGroup = strings.HasSuffix(msg.RoomID, "@chatroom")
	for _, h := range handlers {
		h(msg)
	}
}

// Outbox returns the recorded outgoing operations in order.
func (s *Simulator) Outbox() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.outbox...)
}

func (s *Simulator) record(op, receiver string, payload any) {
	s.mu.Lock()
	s.outbox = append(s.outbox, Sent{Op: op, Receiver: receiver, Payload: payload})
	s.mu.Unlock()
	s.logger.Debug("simulated call", "op", op, "receiver", receiver)
}

// echo reports an outgoing message back as a self-sent capture.
func (s *Simulator) echo(msg wcf.Message, receiver string) {
	msg.IsSelf = true
	msg.Sender = s.cfg.SelfWxid
	msg.RoomID = receiver
	s.Inject(msg)
}

// ─── Helpers ───────────────────────────────────────────────────────

func splitWxids(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func wxidSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitWxids(list) {
		set[w] = struct{}{}
	}
	return set
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
