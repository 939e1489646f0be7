package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/pipeline"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/search"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/stremio"
)

var manifest = stremio.Manifest{
	ID:          "com.streamio.magnetresolver",
	Name:        "Magnet Resolver",
	Description: "Resolves movie, series and anime identifiers into ranked P2P magnet streams.",
	Version:     version,

	ResourceItems: []stremio.ResourceItem{
		{Name: "stream", Types: []string{"movie", "series", "anime"}},
		{Name: "catalog", Types: []string{"movie", "series", "anime"}},
		{Name: "meta", Types: []string{"movie", "series", "anime"}},
	},
	Types:    []string{"movie", "series", "anime"},
	Catalogs: []stremio.CatalogItem{},
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func manifestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manifest)
	}
}

// streamHandler resolves GET /stream/{type}/{id}.json into a StreamResponse
// via the request pipeline, which never fails open: every error mode is
// already shaped into the response itself.
func streamHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		id := trimJSONSuffix(params["id"])

		resp := p.Handle(r.Context(), pipeline.Request{Type: params["type"], ID: id})
		writeJSON(w, http.StatusOK, resp)
	}
}

// catalogHandler returns an empty catalog: this addon resolves streams for
// identifiers supplied by other catalog addons, it doesn't browse its own.
func catalogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Metas []stremio.MetaPreviewItem `json:"metas"`
		}{Metas: []stremio.MetaPreviewItem{}})
	}
}

// metaHandler returns title/year enrichment for a single id, reusing the
// same metadata collaborator the stream pipeline enriches with.
func metaHandler(metaClient pipeline.MetadataClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		id := trimJSONSuffix(params["id"])

		meta, err := metaClient.FetchMetadata(r.Context(), id)
		if err != nil || meta == nil {
			writeJSON(w, http.StatusNotFound, struct {
				Err string `json:"err"`
			}{Err: "metadata not found"})
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Meta stremio.MetaItem `json:"meta"`
		}{Meta: stremio.MetaItem{ID: id, Type: params["type"], Name: meta.Title, Released: meta.Year}})
	}
}

// searchRequest is the GET query / POST JSON body shape for /api/search.
type searchRequest struct {
	Term        string   `json:"term"`
	Type        string   `json:"type"`
	ImdbID      string   `json:"imdbId"`
	Year        string   `json:"year"`
	Quality     string   `json:"quality"`
	Language    string   `json:"language"`
	Season      int      `json:"season"`
	Episode     int      `json:"episode"`
	ProviderIDs []string `json:"providers"`
	SortBy      string   `json:"sortBy"`
	SkipCache   bool     `json:"skipCache"`
}

func searchHandler(orch *search.Orchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			req = searchRequest{
				Term:     q.Get("term"),
				Type:     q.Get("type"),
				ImdbID:   q.Get("imdbId"),
				Year:     q.Get("year"),
				Quality:  q.Get("quality"),
				Language: q.Get("language"),
				SortBy:   q.Get("sortBy"),
			}
			req.Season, _ = strconv.Atoi(q.Get("season"))
			req.Episode, _ = strconv.Atoi(q.Get("episode"))
			if providers := q.Get("providers"); providers != "" {
				req.ProviderIDs = splitCSV(providers)
			}
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, struct {
					Err string `json:"err"`
				}{Err: "malformed request body"})
				return
			}
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if req.Term == "" && req.ImdbID == "" {
			writeJSON(w, http.StatusBadRequest, struct {
				Err string `json:"err"`
			}{Err: "term or imdbId is required"})
			return
		}

		query := search.Query{
			Term:     req.Term,
			Type:     req.Type,
			ImdbID:   req.ImdbID,
			Year:     req.Year,
			Quality:  req.Quality,
			Language: req.Language,
			Season:   req.Season,
			Episode:  req.Episode,
		}
		result := orch.Search(r.Context(), query, req.ProviderIDs, req.SkipCache, search.SortBy(req.SortBy))
		writeJSON(w, http.StatusOK, result)
	}
}

func providerStatsHandler(orch *search.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Providers []search.ProviderStats `json:"providers"`
		}{Providers: orch.Stats()})
	}
}

func cacheCleanHandler(cache *cachestore.Cache, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		cache.Sweep()
		stats := cache.Stats()
		logger.Info("Cache swept on demand",
			zap.Int64("bytesUsed", stats.BytesUsed), zap.Int("entryCount", stats.EntryCount))
		writeJSON(w, http.StatusOK, stats)
	}
}

func healthHandler(cache *cachestore.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string          `json:"status"`
			Cache  cachestore.Stats `json:"cache"`
		}{Status: "ok", Cache: cache.Stats()})
	}
}

// notFoundHandler lists the addon's available endpoints, matching the
// teacher's habit of a discoverable 404 body instead of a bare status.
func notFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, struct {
			Err       string   `json:"err"`
			Endpoints []string `json:"endpoints"`
		}{
			Err: "not found",
			Endpoints: []string{
				"GET /manifest.json",
				"GET /stream/{type}/{id}.json",
				"GET /catalog/{type}/{catalogId}.json",
				"GET /meta/{type}/{id}.json",
				"GET /api/search",
				"POST /api/search",
				"GET /api/providers/stats",
				"POST /api/cache/clean",
				"GET /api/health",
			},
		})
	}
}

func trimJSONSuffix(s string) string {
	const suffix = ".json"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
