package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/flowkeeper/pkg/buildinfo"
	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/command"
	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/mutate"
	"github.com/matzehuels/flowkeeper/pkg/render"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

// =============================================================================
// Service Endpoints
// =============================================================================

type healthResponse struct {
	Status   string         `json:"status"`
	Build    buildinfo.Info `json:"build"`
	Sessions int            `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Current(), Sessions: s.manager.Len()})
}

type kindInfo struct {
	Kind      flow.Kind        `json:"kind"`
	Category  catalog.Category `json:"category"`
	Title     string           `json:"title"`
	Inputs    []string         `json:"inputs"`
	Outputs   []string         `json:"outputs"`
	Container bool             `json:"container,omitempty"`
	HasItems  bool             `json:"hasItems,omitempty"`
	Size      flow.Size        `json:"size"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	kinds := catalog.Kinds()
	out := make([]kindInfo, 0, len(kinds))
	for _, k := range kinds {
		p, _ := catalog.Lookup(k)
		inputs, outputs := catalog.Handles(flow.Node{Type: k, Data: catalog.DefaultData(k)})
		out = append(out, kindInfo{
			Kind:      k,
			Category:  p.Category,
			Title:     p.Title,
			Inputs:    inputs,
			Outputs:   outputs,
			Container: p.Container,
			HasItems:  p.Items != nil,
			Size:      p.Size,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type validateRequest struct {
	Candidate connect.Candidate `json:"candidate"`
	Nodes     []flow.Node       `json:"nodes" validate:"required"`
	Edges     []flow.Edge       `json:"edges"`
}

type validateResponse struct {
	connect.Result
	Message string    `json:"message,omitempty"`
	Edge    flow.Edge `json:"edge"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res := connect.Validate(req.Candidate, req.Nodes, req.Edges)
	resp := validateResponse{Result: res, Edge: req.Candidate.Edge()}
	if !res.Valid {
		resp.Message = res.Reason.Message()
	}
	writeJSON(w, http.StatusOK, resp)
}

type projectResponse struct {
	ID      string               `json:"id"`
	Project flow.ProjectSnapshot `json:"project"`
	Report  snapshot.Report      `json:"report"`
	Hint    string               `json:"hint,omitempty"`
	Dirty   bool                 `json:"dirty"`
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	p, report := snapshot.DecodeProject(data, snapshot.Options{})
	writeJSON(w, http.StatusOK, projectResponse{Project: p, Report: report})
}

// =============================================================================
// Project Endpoints
// =============================================================================

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{
		ID:      sess.ID(),
		Project: sess.Project(),
		Report:  sess.Report(),
		Hint:    sess.Hint(),
		Dirty:   sess.Dirty(),
	})
}

func (s *Server) handlePutProject(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var p flow.ProjectSnapshot
	if err := s.decode(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	report, err := sess.Replace(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{ID: sess.ID(), Project: sess.Project(), Report: report, Dirty: true})
}

type changesRequest struct {
	Graph   string              `json:"graph"`
	Changes []mutate.NodeChange `json:"changes" validate:"required,min=1,dive"`
	// Attach answers drop-to-group prompts raised by this batch. Anything
	// other than "confirm" declines.
	Attach string `json:"attach" validate:"omitempty,oneof=confirm decline"`
}

type changesResponse struct {
	Graph         flow.GraphDocument `json:"graph"`
	Moved         []string           `json:"moved,omitempty"`
	Removed       []string           `json:"removed,omitempty"`
	Attached      []mutate.Attach    `json:"attached,omitempty"`
	Declined      []mutate.Attach    `json:"declined,omitempty"`
	PrunedEdges   []string           `json:"prunedEdges,omitempty"`
	LayoutChanged bool               `json:"layoutChanged"`
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req changesRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := sess.ApplyNodeChangesWith(r.Context(), req.Graph, req.Changes, mutate.Always(req.Attach == "confirm"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changesResponse{
		Graph:         res.Graph,
		Moved:         res.Moved,
		Removed:       res.Removed,
		Attached:      res.Attached,
		Declined:      res.Declined,
		PrunedEdges:   res.PrunedEdges,
		LayoutChanged: res.LayoutChanged,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	cmd, err := command.Decode(data)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", err.Error()))
		return
	}
	out, err := sess.Dispatch(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// A rejection is a normal outcome, reported with its reason.
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Flush(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		writeJSON(w, http.StatusOK, snapshot.ExportProjectLogic(sess.Project()))
		return
	}
	g, ok := sess.Graph(r.URL.Query().Get("graph"))
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeGraphNotFound, "graph %q not found", r.URL.Query().Get("graph")))
		return
	}
	writeJSON(w, http.StatusOK, snapshot.ExportLogic(g))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := snapshot.EncodeLayout(snapshot.CaptureLayout(sess.Project()))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode layout"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	g, ok := sess.Graph(q.Get("graph"))
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeGraphNotFound, "graph %q not found", q.Get("graph")))
		return
	}
	detailed, _ := strconv.ParseBool(q.Get("detailed"))
	lr, _ := strconv.ParseBool(q.Get("lr"))
	dot := render.ToDOT(g, render.Options{Detailed: detailed, LeftToRight: lr})

	if q.Get("format") == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
		return
	}
	svg, err := render.RenderSVG(r.Context(), dot)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "render svg"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
