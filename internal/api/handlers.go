package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
)

type extractRequest struct {
	PageURL string `json:"pageUrl"`
}

type fetchRequest struct {
	ImageURL string `json:"imageUrl"`
	Referer  string `json:"referer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Memory *crawlers.MemoryStatus `json:"memory,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.extract(w, r, req.PageURL)
}

func (s *Server) handleExtractQuery(w http.ResponseWriter, r *http.Request) {
	s.extract(w, r, r.URL.Query().Get("pageUrl"))
}

// extract 输入有效时总是返回200,内部失败按空结果处理
func (s *Server) extract(w http.ResponseWriter, r *http.Request, pageURL string) {
	if strings.TrimSpace(pageURL) == "" {
		writeError(w, http.StatusBadRequest, "pageUrl is required")
		return
	}

	result, err := s.safeScrape(r, pageURL)
	switch {
	case errors.Is(err, models.ErrMissingPageURL):
		writeError(w, http.StatusBadRequest, "pageUrl is required")
		return
	case errors.Is(err, models.ErrInvalidPageURL):
		writeError(w, http.StatusBadRequest, "pageUrl is not a valid http(s) URL")
		return
	case err != nil:
		utils.Warnf("提取失败,返回空结果 [%s]: %v", pageURL, err)
		result = models.NewExtractResult(nil, models.DefaultMaxImages)
	}

	writeJSON(w, http.StatusOK, result)
}

// safeScrape 编排器panic时同样返回空结果
func (s *Server) safeScrape(r *http.Request, pageURL string) (result *models.ExtractResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			utils.Errorf("提取过程panic [%s]: %v", pageURL, rec)
			result, err = models.NewExtractResult(nil, models.DefaultMaxImages), nil
		}
	}()

	result, _, err = s.scraper.Scrape(r.Context(), pageURL)
	if err == nil && result == nil {
		result = models.NewExtractResult(nil, models.DefaultMaxImages)
	}
	return result, err
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	img, err := s.fetcher.Fetch(r.Context(), req.ImageURL, req.Referer)
	if err != nil {
		utils.Debugf("图片抓取失败 [%s]: %v", req.ImageURL, err)
		writeError(w, fetchErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, img)
}

// fetchErrorStatus 非图片和超限为422,其余为400
func fetchErrorStatus(err error) int {
	var fe *crawlers.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case crawlers.KindNotImage, crawlers.KindTooLarge:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusBadRequest
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.monitor != nil {
		status := s.monitor.GetMemoryStatus()
		resp.Memory = &status
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Warnf("写入响应失败: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
