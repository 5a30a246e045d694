package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/edit"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
	"github.com/upkedit/upkedit/store"
)

// server exposes the store over HTTP. Reads use snapshots; writes go through
// the edit queue.
type server struct {
	app    *app
	router *httprouter.Router
}

func newServer(a *app) *server {
	s := &server{app: a, router: httprouter.New()}
	s.router.GET("/exports", s.serveExports)
	s.router.GET("/exports/:name/t3d", s.serveT3D)
	s.router.GET("/exports/:name/dump", s.serveDump)
	s.router.GET("/actors/:name", s.serveActor)
	s.router.PUT("/actors/:name/location", s.serveSetLocation)
	s.router.POST("/actors/:name/copy", s.serveCopy)
	s.router.GET("/near", s.serveNear)
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%v %v", req.Method, req.URL)

	s.router.ServeHTTP(w, req)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, edit.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, actor.ErrAbsent):
		return http.StatusConflict
	case errors.Is(err, errors.ErrMalformed), errors.Is(err, errors.ErrUnsupportedLayout):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("content-type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[writeJSON] %v", err)
	}
}

type exportInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Size  int    `json:"size"`
}

func (s *server) serveExports(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pkg, err := s.app.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	class := r.URL.Query().Get("class")
	list := []exportInfo{}
	for _, e := range pkg.Exports {
		if class != "" && e.FullClassName() != class {
			continue
		}
		list = append(list, exportInfo{Index: e.Index, Name: e.ObjectName(), Class: e.FullClassName(), Size: len(e.Raw)})
	}
	writeJSON(w, list)
}

func (s *server) serveT3D(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pkg, err := s.app.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	e, err := findExport(pkg, ps.ByName("name"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	var buf bytes.Buffer
	err = writeDecompiled(&buf, pkg, e, func(warn error) {
		log.Printf("[serveT3D] warning: %v", warn)
	})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("content-type", "text/plain")
	w.Write(buf.Bytes())
}

func (s *server) serveDump(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pkg, err := s.app.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	e, err := findExport(pkg, ps.ByName("name"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	start, err := props.Start(e)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	var buf bytes.Buffer
	if _, err := props.Dump(&buf, e.Raw, start, pkg); err != nil {
		log.Printf("[serveDump] %s: %v", e.ObjectName(), err)
	}
	w.Header().Set("content-type", "text/plain")
	w.Write(buf.Bytes())
}

type actorInfo struct {
	Name            string         `json:"name"`
	Class           string         `json:"class"`
	StaticMesh      string         `json:"static_mesh,omitempty"`
	Location        *actor.Vector  `json:"location,omitempty"`
	Rotation        *actor.Rotator `json:"rotation,omitempty"`
	RotationRate    *actor.Rotator `json:"rotation_rate,omitempty"`
	DrawScale       *float32       `json:"draw_scale,omitempty"`
	DrawScale3D     *actor.Vector  `json:"draw_scale_3d,omitempty"`
	ZoneRenderState []int32        `json:"zone_render_state,omitempty"`
	Offsets         map[string]int `json:"offsets"`
}

func (s *server) serveActor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pkg, err := s.app.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	e, err := findExport(pkg, ps.ByName("name"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	act, err := actor.Open(e, pkg)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	info := actorInfo{Name: e.ObjectName(), Class: e.FullClassName(), Offsets: map[string]int{}}
	if offsets, err := act.Offsets(); err == nil {
		for f := actor.Field(0); f < actor.NumFields; f++ {
			if offsets.Present(f) {
				info.Offsets[f.String()] = offsets.Offset(f)
			}
		}
	}
	if ref, ok, _ := act.StaticMesh(); ok {
		if ent, err := pkg.ObjectReference(ref); err == nil && ent != nil {
			info.StaticMesh = ent.ObjectFullName()
		}
	}
	if v, ok, _ := act.Location(); ok {
		info.Location = &v
	}
	if v, ok, _ := act.Rotation(); ok {
		info.Rotation = &v
	}
	if v, ok, _ := act.RotationRate(); ok {
		info.RotationRate = &v
	}
	if v, ok, _ := act.DrawScale(); ok {
		info.DrawScale = &v
	}
	if v, ok, _ := act.DrawScale3D(); ok {
		info.DrawScale3D = &v
	}
	if v, ok, _ := act.ZoneRenderState(); ok {
		info.ZoneRenderState = v
	}
	writeJSON(w, info)
}

func (s *server) serveSetLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var v actor.Vector
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode location: %w", err))
		return
	}
	name := ps.ByName("name")
	err := s.app.editor.Do("location "+name, edit.UpdateActor(name, func(a *actor.Actor) error {
		return a.SetLocation(v)
	}))
	if err != nil {
		log.Printf("[serveSetLocation] %s: %v", name, err)
		writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) serveCopy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var name string
	source := ps.ByName("name")
	if err := s.app.editor.Do("copy "+source, edit.CopyActor(source, &name)); err != nil {
		log.Printf("[serveCopy] %s: %v", source, err)
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct {
		Name string `json:"name"`
	}{name})
}

// queryFloat returns the named query parameter, or nil if it is absent.
func queryFloat(r *http.Request, key string) (*float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return &f, nil
}

func (s *server) serveNear(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var axes [4]*float64
	for i, key := range []string{"x", "y", "z", "radius"} {
		f, err := queryFloat(r, key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		axes[i] = f
	}
	radius := -1.0
	if axes[3] != nil {
		radius = *axes[3]
	}
	class := defaultActorClass
	if q := r.URL.Query(); q.Has("class") {
		class = q.Get("class")
	}
	pkg, err := s.app.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	list, warn := actor.Near(pkg, class, axes[0], axes[1], axes[2], radius)
	if warn != nil {
		log.Printf("[serveNear] %v", warn)
	}
	type placement struct {
		Name     string       `json:"name"`
		Location actor.Vector `json:"location"`
		Range    float64      `json:"range"`
	}
	out := []placement{}
	for _, p := range list {
		out = append(out, placement{Name: p.Export.ObjectName(), Location: p.Location, Range: p.Range})
	}
	writeJSON(w, out)
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over HTTP",
		Long: `Serves the package in the store over HTTP:

  GET  /exports[?class=CLASS]     list exports
  GET  /exports/:name/t3d         render an export as T3D text
  GET  /exports/:name/dump        display the property records of an export
  GET  /actors/:name              display the placement fields of an actor
  PUT  /actors/:name/location     move an actor; the body is {"X":0,"Y":0,"Z":0}
  POST /actors/:name/copy         duplicate an actor
  GET  /near?x=&y=&z=&radius=     list actors near a point`,
		Args: cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			log.Printf("[serve] listening on %s", addr)
			return http.ListenAndServe(addr, newServer(a))
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Address to listen on")
	return cmd
}
