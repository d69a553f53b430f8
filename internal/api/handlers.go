package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"nomnomhub/internal/generate"
	"nomnomhub/internal/pkg"
	"nomnomhub/internal/version"
)

// ProjectRequest is the body of POST /projects
type ProjectRequest struct {
	Name          string `json:"name"`
	Path          string `json:"path,omitempty"`
	EditorVersion string `json:"editorVersion,omitempty"`
	Template      string `json:"template,omitempty"`
	// Packages replaces the resolved dependency set when present
	Packages []pkg.MinimalPackage `json:"packages,omitempty"`
	Files    []string             `json:"files,omitempty"`
}

// TemplateRequest is the body of POST /templates. FromProject packs an
// existing project instead of a base template.
type TemplateRequest struct {
	generate.TemplateMetadata
	EditorVersion string               `json:"editorVersion,omitempty"`
	Base          string               `json:"base,omitempty"`
	FromProject   string               `json:"fromProject,omitempty"`
	Packages      []pkg.MinimalPackage `json:"packages,omitempty"`
	Files         []string             `json:"files,omitempty"`
}

// InspectRequest is the body of POST /templates/inspect
type InspectRequest struct {
	EditorVersion string `json:"editorVersion,omitempty"`
	Template      string `json:"template"`
}

// healthHandler returns API health status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "nomnomhub",
		"version": version.Build,
	})
}

// routesHandler lists the registered routes
func (s *Server) routesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.GetAllRoutes())
}

func (s *Server) listEditorsHandler(w http.ResponseWriter, r *http.Request) {
	editors, err := s.App.Editors()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editors)
}

func (s *Server) listTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.App.ListTemplates(mux.Vars(r)["version"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) defaultPackagesHandler(w http.ResponseWriter, r *http.Request) {
	packages, err := s.App.DefaultPackages(mux.Vars(r)["version"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, packages)
}

func (s *Server) inspectTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var req InspectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Template == "" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}
	editorVersion, err := s.editorVersion(req.EditorVersion)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	info, err := s.App.InspectTemplate(r.Context(), editorVersion, req.Template)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.App.Projects())
}

func (s *Server) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	editorVersion, err := s.editorVersion(req.EditorVersion)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	install, err := s.App.Editor(editorVersion)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	genReq := generate.ProjectRequest{
		Name:     req.Name,
		Path:     req.Path,
		Install:  install,
		Packages: req.Packages,
		Files:    req.Files,
	}
	if req.Template != "" {
		template, err := s.App.FindTemplate(editorVersion, req.Template)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		genReq.Template = &template
	}

	result, err := s.App.GenerateProject(r.Context(), genReq)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) createTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FromProject != "" && req.Base != "" {
		writeError(w, http.StatusBadRequest, "base and fromProject are mutually exclusive")
		return
	}

	var (
		result *generate.TemplateResult
		err    error
	)
	if req.FromProject != "" {
		result, err = s.templateFromProject(r, req)
	} else {
		result, err = s.templateFromBase(r, req)
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) templateFromBase(r *http.Request, req TemplateRequest) (*generate.TemplateResult, error) {
	editorVersion, err := s.editorVersion(req.EditorVersion)
	if err != nil {
		return nil, err
	}
	install, err := s.App.Editor(editorVersion)
	if err != nil {
		return nil, err
	}

	genReq := generate.TemplateRequest{
		TemplateMetadata: req.TemplateMetadata,
		Install:          install,
		Packages:         req.Packages,
		Files:            req.Files,
	}
	if req.Base != "" {
		base, err := s.App.FindTemplate(editorVersion, req.Base)
		if err != nil {
			return nil, err
		}
		genReq.Base = &base
	}
	return s.App.GenerateTemplate(r.Context(), genReq)
}

func (s *Server) templateFromProject(r *http.Request, req TemplateRequest) (*generate.TemplateResult, error) {
	editorVersion := req.EditorVersion
	if editorVersion == "" {
		projectVersion, err := generate.ReadProjectVersion(req.FromProject)
		if err != nil {
			return nil, err
		}
		editorVersion = projectVersion
	}
	install, err := s.App.Editor(editorVersion)
	if err != nil {
		return nil, err
	}
	return s.App.GenerateTemplateFromProject(r.Context(), generate.FromProjectRequest{
		TemplateMetadata: req.TemplateMetadata,
		Install:          install,
		ProjectPath:      req.FromProject,
		Files:            req.Files,
	})
}

// editorVersion falls back to the default editor when requested is empty
func (s *Server) editorVersion(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	return s.App.DefaultEditorVersion()
}

// decodeBody decodes a JSON request body, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
