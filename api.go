package flowio

import (
	"git.nspix.com/golang/kos"
	"git.nspix.com/golang/kos/entry/http"
	"github.com/uole/flowio/version"
)

func (svr *Server) handleStatus(ctx *http.Context) (err error) {
	return ctx.Success(&StatusInfo{
		Node:     svr.info,
		Sessions: len(svr.getSessionSnapshot()),
		Version:  version.Version,
	})
}

func (svr *Server) handleListSessions(ctx *http.Context) (err error) {
	return ctx.Success(svr.getSessionSnapshot())
}

func (svr *Server) handleVersion(ctx *http.Context) (err error) {
	return ctx.Success(map[string]string{
		"product": version.ProductName,
		"version": version.Version,
	})
}

func (svr *Server) routes() {
	kos.Http().Group("/api/v1", []http.Route{
		{http.MethodGet, "/status", svr.handleStatus},
		{http.MethodGet, "/sessions", svr.handleListSessions},
		{http.MethodGet, "/version", svr.handleVersion},
	})
}
