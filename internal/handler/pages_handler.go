package handler

import (
	"encoding/json"
	"net/http"

	mw "github.com/mdtanvirislamrakib/historivault/internal/middleware"
	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// PagesHandler は静的なコンテンツページのHTTPハンドラー。
// 各ページはビューモデルのみを返し、描画はクライアント側に委ねる。
type PagesHandler struct{}

// NewPagesHandler はPagesHandlerを生成する。
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// pageResponse はコンテンツページのビューモデル。
type pageResponse struct {
	Page     string `json:"page"`
	Title    string `json:"title"`
	SignedIn bool   `json:"signedIn"`
}

func writePage(w http.ResponseWriter, r *http.Request, page, title string) {
	_, err := mw.SessionFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pageResponse{
		Page:     page,
		Title:    title,
		SignedIn: err == nil,
	})
}

// Login はサインインページを返す。未認証ガードのリダイレクト先でもある。
// GET /login
func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, "login", "Sign In")
}

// About は本アプリの紹介ページを返す。
// GET /about
func (h *PagesHandler) About(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, "about", "About HistoriVault")
}

// ContactSupport はサポート問い合わせページを返す。
// GET /contact-support
func (h *PagesHandler) ContactSupport(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, "contact-support", "Contact Support")
}

// BrowseDocumentation は利用ガイドページを返す。
// GET /browse-documentation
func (h *PagesHandler) BrowseDocumentation(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, "browse-documentation", "Browse Documentation")
}

// artifactTypesResponse は遺物種別の固定セットのレスポンス。
type artifactTypesResponse struct {
	Types []model.ArtifactType `json:"types"`
}

// ArtifactTypes は登録フォームの種別セレクタ用の固定セットを返す。
// GET /artifact-types
func (h *PagesHandler) ArtifactTypes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactTypesResponse{Types: model.ArtifactTypes()})
}
