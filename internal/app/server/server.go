package server

import (
	"log/slog"
	"net/http"
	"time"

	"ripple/internal/app/server/handlers"
	"ripple/pkg/middleware"
)

type Server struct {
	mux     *http.ServeMux
	addr    string
	name    string
	log     *slog.Logger
	users   *handlers.DirectoryHandler
	groups  *handlers.GroupHandler
	msgs    *handlers.MessageHandler
	wsConns *handlers.WSHandler
	auth    func(http.Handler) http.Handler
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	auth func(http.Handler) http.Handler,
	users *handlers.DirectoryHandler,
	groups *handlers.GroupHandler,
	msgs *handlers.MessageHandler,
	wsConns *handlers.WSHandler,
) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		addr:    addr,
		name:    name,
		log:     log,
		users:   users,
		groups:  groups,
		msgs:    msgs,
		wsConns: wsConns,
		auth:    auth,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := s.auth

	s.mux.Handle("GET /api/users", auth(http.HandlerFunc(s.users.ListUsers)))

	s.mux.Handle("POST /api/groups", auth(http.HandlerFunc(s.groups.CreateGroup)))
	s.mux.Handle("POST /api/groups/{id}/members", auth(http.HandlerFunc(s.groups.AddMember)))
	s.mux.Handle("DELETE /api/groups/{id}/members/{user_id}", auth(http.HandlerFunc(s.groups.RemoveMember)))

	s.mux.Handle("POST /api/messages", auth(http.HandlerFunc(s.msgs.Compose)))
	s.mux.Handle("GET /api/conversations/{id}/messages", auth(http.HandlerFunc(s.msgs.History)))

	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsConns.Handler)))
}

func (s *Server) Start() error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.name)(s.mux),
	)
	server := &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
