package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/sdui/internal/cache"
	"github.com/pitabwire/sdui/internal/microapp"
	"github.com/pitabwire/sdui/internal/observability"
	"github.com/pitabwire/sdui/model"
)

// ImportRequest is the body of POST /microapps. Files maps logical package
// file names (microapp.xml, screens/main.xml, ...) to their XML text.
type ImportRequest struct {
	Files map[string]string `json:"files"`
	// Template imports the package as a template; Code then names the entry.
	Template bool   `json:"template,omitempty"`
	Code     string `json:"code,omitempty"`
}

// ImportResponse summarises a stored microapp.
type ImportResponse struct {
	Code     string    `json:"code"`
	Screens  []string  `json:"screens"`
	Queries  int       `json:"queries"`
	CachedAt time.Time `json:"cached_at"`
}

// RenderResponse is one bound screen in its persisted, code-only form.
type RenderResponse struct {
	MicroappCode string                      `json:"microapp_code"`
	ScreenCode   string                      `json:"screen_code"`
	Title        string                      `json:"title,omitempty"`
	Queries      []model.ScreenQuery         `json:"queries,omitempty"`
	Root         *model.CachedComponentModel `json:"root,omitempty"`
	Styles       *model.AllStyles            `json:"styles,omitempty"`
	Bindings     BindingSummary              `json:"bindings"`
}

// BindingSummary reports how many binding macros were resolved.
type BindingSummary struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

func handleListMicroapps(svc *microapp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := svc.List(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string][]string{"microapps": codes})
	}
}

func handleGetMicroapp(svc *microapp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, data)
	}
}

func handleImportMicroapp(svc *microapp.Service, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := decodeBody(w, r, maxBytes, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		if len(req.Files) == 0 {
			WriteError(w, r, model.NewBadRequestError("files is required"))
			return
		}

		provider := microapp.NewMapProvider(req.Files)
		var (
			data *model.CachedMicroappData
			err  error
		)
		if req.Template {
			data, err = svc.ImportTemplate(r.Context(), req.Code, provider)
		} else {
			data, err = svc.Import(r.Context(), provider)
		}
		if err != nil {
			WriteError(w, r, err)
			return
		}

		w.Header().Set("Location", "/microapps/"+data.MicroappCode)
		WriteJSON(w, http.StatusCreated, ImportResponse{
			Code:     data.MicroappCode,
			Screens:  data.ScreenCodes(),
			Queries:  len(data.Queries),
			CachedAt: data.CachedAt,
		})
	}
}

func handleDeleteMicroapp(svc *microapp.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
			WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRenderScreen(svc *microapp.Service, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		screenCode := chi.URLParam(r, "screenCode")

		raw, err := readBody(w, r, maxBytes)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		dc := model.NewDataContext()
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, dc); err != nil {
				WriteError(w, r, model.NewBadRequestError("body is not a valid data context"))
				return
			}
		}

		log := observability.RequestLogger(r.Context(), logger)
		if log.Core().Enabled(zapcore.DebugLevel) && len(raw) > 0 {
			var body map[string]any
			if json.Unmarshal(raw, &body) == nil {
				log.Debug("render request",
					zap.String("microapp", code),
					zap.String("screen", screenCode),
					zap.Any("data_context", observability.RedactBody(body, nil)))
			}
		}

		out, err := svc.Render(r.Context(), code, screenCode, dc)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		resp := RenderResponse{
			MicroappCode: out.MicroappCode,
			ScreenCode:   out.Screen.ScreenCode,
			Title:        out.Screen.Title,
			Queries:      out.Screen.Queries,
			Styles:       out.Styles,
			Bindings:     BindingSummary{Total: out.Stats.Total, Resolved: out.Stats.Resolved},
		}
		if out.Root != nil {
			root, err := cache.ToCached(out.Root)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			resp.Root = &root
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// readBody reads at most maxBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.NewBadRequestError(fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, model.NewBadRequestError("body could not be read")
	}
	return data, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	raw, err := readBody(w, r, maxBytes)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return model.NewBadRequestError("body is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return model.NewBadRequestError("body is not valid JSON")
	}
	return nil
}
