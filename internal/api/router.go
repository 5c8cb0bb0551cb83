package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// route declares one endpoint.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	for _, rt := range s.routes() {
		r.Method(rt.method, rt.pattern, rt.handler)
	}

	// Operational endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

// routes is the backend endpoint table.
func (s *Server) routes() []route {
	g := s.guard
	return []route{
		// Session
		{http.MethodGet, "/qrcode", bindNone(guarded0(g, wcf.OpRefreshQRCode, "refresh qrcode", wcf.Client.RefreshQRCode))},
		{http.MethodGet, "/islogin", bindNone(guarded0(g, wcf.OpIsLogin, "query login status", wcf.Client.IsLogin))},
		{http.MethodGet, "/selfwxid", bindNone(guarded0(g, wcf.OpGetSelfWxid, "query self wxid", wcf.Client.GetSelfWxid))},
		{http.MethodGet, "/userinfo", bindNone(guarded0(g, wcf.OpGetUserInfo, "get user info", wcf.Client.GetUserInfo))},
		{http.MethodGet, "/contacts", bindNone(guarded0(g, wcf.OpGetContacts, "get contacts", wcf.Client.GetContacts))},
		{http.MethodGet, "/dbs", bindNone(guarded0(g, wcf.OpGetDBs, "get databases", wcf.Client.GetDBs))},
		{http.MethodGet, "/{db}/tables", bindPath("db", guarded(g, wcf.OpGetTables, "get tables", wcf.Client.GetTables))},
		{http.MethodGet, "/msg-types", bindNone(guarded0(g, wcf.OpGetMsgTypes, "get message types", wcf.Client.GetMsgTypes))},
		{http.MethodGet, "/pyq", bindQuery(parseID, guarded(g, wcf.OpRefreshPyq, "refresh moments", wcf.Client.RefreshPyq))},

		// Messages
		{http.MethodPost, "/text", bindJSON(guarded(g, wcf.OpSendText, "send text", wcf.Client.SendText))},
		{http.MethodPost, "/image", bindJSON(s.sendImage)},
		{http.MethodPost, "/file", bindJSON(guarded(g, wcf.OpSendFile, "send file", wcf.Client.SendFile))},
		{http.MethodPost, "/rich-text", bindJSON(guarded(g, wcf.OpSendRichText, "send rich text", wcf.Client.SendRichText))},
		{http.MethodPost, "/pat", bindJSON(guarded(g, wcf.OpSendPat, "send pat", wcf.Client.SendPat))},
		{http.MethodPost, "/forward-msg", bindJSON(guarded(g, wcf.OpForwardMsg, "forward message", wcf.Client.ForwardMsg))},
		{http.MethodPost, "/revoke-msg", bindQuery(parseID, guarded(g, wcf.OpRevokeMsg, "revoke message", wcf.Client.RevokeMsg))},

		// Attachments
		{http.MethodPost, "/audio", bindJSON(guarded(g, wcf.OpSaveAudio, "save audio", wcf.Client.SaveAudio))},
		{http.MethodPost, "/save-image", bindJSON(s.saveImage)},
		{http.MethodPost, "/save-file", bindJSON(s.saveFile)},
		{http.MethodGet, "/download-image", s.handleDownloadImage},
		{http.MethodGet, "/download-file", s.handleDownloadFile},

		// Database
		{http.MethodPost, "/sql", bindJSON(s.querySQL)},

		// Contacts and rooms
		{http.MethodPost, "/receive-transfer", bindJSON(guarded(g, wcf.OpRecvTransfer, "receive transfer", wcf.Client.RecvTransfer))},
		{http.MethodPost, "/accept-new-friend", bindJSON(guarded(g, wcf.OpAcceptNewFriend, "accept new friend", wcf.Client.AcceptNewFriend))},
		{http.MethodPost, "/add-chatroom-member", bindJSON(guarded(g, wcf.OpAddChatroomMember, "add chatroom members", wcf.Client.AddChatroomMember))},
		{http.MethodPost, "/invite-chatroom-member", bindJSON(guarded(g, wcf.OpInviteChatroomMember, "invite chatroom members", wcf.Client.InviteChatroomMember))},
		{http.MethodPost, "/delete-chatroom-member", bindJSON(guarded(g, wcf.OpDeleteChatroomMember, "delete chatroom members", wcf.Client.DeleteChatroomMember))},
		{http.MethodGet, "/query-room-member", bindQuery(parseRoomQuery, s.queryRoomMember)},
	}
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"backend": s.backend,
	}
	if s.backendOnline != nil {
		body["backend_online"] = s.backendOnline()
	}
	writeJSON(w, http.StatusOK, body)
}
