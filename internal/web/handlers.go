package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shopclean/internal/core"
	"github.com/JonMunkholm/shopclean/internal/csvio"
)

// tableView describes one registered input table.
type tableView struct {
	Key       string      `json:"key"`
	Label     string      `json:"label"`
	Columns   []string    `json:"columns"`
	Required  []string    `json:"required"`
	UniqueKey []string    `json:"uniqueKey"`
	Fields    []fieldView `json:"fields"`
}

// fieldView is one column with its expected type. Derived columns are
// ignored on upload and recomputed.
type fieldView struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Derived  bool     `json:"derived,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": core.TableCount(),
		"runs":   s.runs.Status(),
	})
}

// handleListTables lists the tables accepted by the clean endpoint.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	out := make([]tableView, 0, len(defs))
	for _, def := range defs {
		v := tableView{
			Key:       def.Info.Key,
			Label:     def.Info.Label,
			Columns:   def.Info.Columns,
			Required:  []string{},
			UniqueKey: def.Info.UniqueKey,
			Fields:    make([]fieldView, 0, len(def.FieldSpecs)),
		}
		for _, f := range def.FieldSpecs {
			if f.Required {
				v.Required = append(v.Required, f.Name)
			}
			v.Fields = append(v.Fields, fieldView{
				Name:     f.Name,
				Type:     f.Type.String(),
				Required: f.Required,
				Derived:  f.Derived,
				Aliases:  f.Aliases,
			})
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDownloadTemplate returns a header-only CSV for a table.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "tableKey")
	if _, ok := core.Get(key); !ok {
		s.respondError(w, r, http.StatusNotFound, fmt.Errorf("unknown table: %s", key))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key+".csv"))
	if err := csvio.WriteTable(w, key, nil); err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
	}
}
