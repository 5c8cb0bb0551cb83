package api

import (
	"context"
	"strings"

	"github.com/RexQian/wcf-gateway/internal/attachment"
	"github.com/RexQian/wcf-gateway/internal/dbrow"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// parseID reads ?id= for /pyq and /revoke-msg.
func parseID(q *query) uint64 {
	return q.Uint64("id")
}

// sendImage stages base64 and URL images locally before sending the path.
func (s *Server) sendImage(ctx context.Context, msg wcf.PathMsg) (bool, error) {
	staged, err := s.stager.StageImage(ctx, msg)
	if err != nil {
		return false, describe("stage image", err)
	}
	return guarded(s.guard, wcf.OpSendImage, "send image", wcf.Client.SendImage)(ctx, staged)
}

// ─── Attachments ───────────────────────────────────────────────────

type saveImageRequest struct {
	ID      uint64 `json:"id"`
	Extra   string `json:"extra"`
	Dir     string `json:"dir"`
	Timeout uint8  `json:"timeout"`
}

type saveFileRequest struct {
	ID    uint64 `json:"id"`
	Extra string `json:"extra"`
	Thumb string `json:"thumb"`
}

// saveImage downloads and decrypts an image attachment into req.Dir.
// Pipeline errors are reported as they are.
func (s *Server) saveImage(ctx context.Context, req saveImageRequest) (string, error) {
	return s.retriever.SaveImage(ctx, attachment.Descriptor{ID: req.ID, Extra: req.Extra}, req.Dir, req.Timeout)
}

// saveFile downloads a file attachment and returns its path.
func (s *Server) saveFile(ctx context.Context, req saveFileRequest) (string, error) {
	return s.retriever.SaveFile(ctx, attachment.Descriptor{ID: req.ID, Thumb: req.Thumb, Extra: req.Extra})
}

// ─── Database ──────────────────────────────────────────────────────

// querySQL runs a query and converts each row into a typed JSON object.
func (s *Server) querySQL(ctx context.Context, q wcf.DbQuery) ([]dbrow.Row, error) {
	rows, err := guarded(s.guard, wcf.OpQuerySQL, "query sql", wcf.Client.QuerySQL)(ctx, q)
	if err != nil {
		return nil, err
	}
	return dbrow.FromDbRows(rows), nil
}

// ─── Rooms ─────────────────────────────────────────────────────────

type roomQuery struct {
	RoomID string
	Wxids  string
}

func parseRoomQuery(q *query) roomQuery {
	return roomQuery{
		RoomID: q.Required("roomid", "room_id"),
		Wxids:  q.Optional("wxids"),
	}
}

// queryRoomMember lists room members, optionally only those in the
// comma-separated wxids filter. An unknown room yields an empty list.
func (s *Server) queryRoomMember(ctx context.Context, in roomQuery) ([]wcf.RoomMember, error) {
	members, err := guarded(s.guard, wcf.OpQueryRoomMember, "query room members", wcf.Client.QueryRoomMember)(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	return filterMembers(members, in.Wxids), nil
}

// filterMembers keeps members whose wxid is in the comma-separated list,
// preserving order. Entries are trimmed and empty ones dropped; an empty
// list keeps everyone.
func filterMembers(members []wcf.RoomMember, wxids string) []wcf.RoomMember {
	wanted := make(map[string]struct{})
	for _, id := range strings.Split(wxids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = struct{}{}
		}
	}

	out := make([]wcf.RoomMember, 0, len(members))
	for _, m := range members {
		if _, ok := wanted[m.Wxid]; len(wanted) == 0 || ok {
			out = append(out, m)
		}
	}
	return out
}
