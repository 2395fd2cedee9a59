package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mdtanvirislamrakib/historivault/internal/gate"
	mw "github.com/mdtanvirislamrakib/historivault/internal/middleware"
	"github.com/mdtanvirislamrakib/historivault/internal/model"
	"github.com/mdtanvirislamrakib/historivault/internal/validation"
)

// ArtifactServiceInterface は遺物ハンドラーが必要とするリモートAPI操作のインターフェース。
type ArtifactServiceInterface interface {
	TopLiked(ctx context.Context) ([]*model.Artifact, error)
	List(ctx context.Context) ([]*model.Artifact, error)
	Get(ctx context.Context, id string) (*model.Artifact, error)
	Mine(ctx context.Context, token, email string) ([]*model.Artifact, error)
	LikedBy(ctx context.Context, token, email string) ([]*model.Artifact, error)
	Add(ctx context.Context, token string, a *model.Artifact) (string, error)
	Update(ctx context.Context, token, id string, a *model.Artifact) error
	ToggleLike(ctx context.Context, id, email string) (bool, error)
	Delete(ctx context.Context, token, id string) (int64, error)
}

// TextSanitizer は自由記述フィールドのサニタイズに必要なインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// ImageURLValidator は画像URLの検証に必要なインターフェース。
type ImageURLValidator interface {
	ValidateImageURL(rawURL string) error
}

// LikeRecorder はいいね関連のメトリクス記録に必要なインターフェース。
type LikeRecorder interface {
	RecordLikeToggle(liked bool)
	RecordSelfLikeRejected()
	RecordValidationRejected(form string)
}

// ArtifactHandler は遺物の閲覧・登録・いいね・管理のHTTPハンドラー。
type ArtifactHandler struct {
	service   ArtifactServiceInterface
	sanitizer TextSanitizer
	validator ImageURLValidator
	metrics   LikeRecorder

	// toggles は送信中のいいねトグルをハンドラー全体で共有して追跡する。
	toggles *gate.ToggleRegistry
}

// NewArtifactHandler はArtifactHandlerを生成する。metricsはnilでもよい。
func NewArtifactHandler(service ArtifactServiceInterface, sanitizer TextSanitizer, validator ImageURLValidator, metrics LikeRecorder) *ArtifactHandler {
	return &ArtifactHandler{
		service:   service,
		sanitizer: sanitizer,
		validator: validator,
		metrics:   metrics,
		toggles:   gate.NewToggleRegistry(),
	}
}

// artifactResponse は遺物のビューモデル。
// いいね状態と操作の可否は閲覧者のアイデンティティから導出する。
type artifactResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Description       string `json:"description"`
	HistoricalContext string `json:"historicalContext"`
	ImageURL          string `json:"imageUrl"`
	CreatedAt         string `json:"createdAt"`
	DiscoveredAt      string `json:"discoveredAt"`
	DiscoveredBy      string `json:"discoveredBy"`
	PresentLocation   string `json:"presentLocation"`
	Email             string `json:"email"`
	LikeCount         int    `json:"likeCount"`
	IsLikedByMe       bool   `json:"isLikedByMe"`
	CanModify         bool   `json:"canModify"`
}

// toArtifactResponse はモデルを閲覧者視点のビューモデルに変換する。
// いいね状態は遺物のlikedByと閲覧者の両方から毎回導出する。
// 古いスナップショットの再利用はしない。
func toArtifactResponse(a *model.Artifact, viewerEmail string) artifactResponse {
	return artifactResponse{
		ID:                a.ID,
		Name:              a.Name,
		Type:              string(a.Type),
		Description:       a.Description,
		HistoricalContext: a.HistoricalContext,
		ImageURL:          a.ImageURL,
		CreatedAt:         a.CreatedAt,
		DiscoveredAt:      a.DiscoveredAt,
		DiscoveredBy:      a.DiscoveredBy,
		PresentLocation:   a.PresentLocation,
		Email:             a.Email,
		LikeCount:         a.LikeCount(),
		IsLikedByMe:       gate.IsLikedBy(a, viewerEmail),
		CanModify:         gate.CanModify(a, viewerEmail),
	}
}

func toArtifactResponses(artifacts []*model.Artifact, viewerEmail string) []artifactResponse {
	responses := make([]artifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		responses = append(responses, toArtifactResponse(a, viewerEmail))
	}
	return responses
}

// viewerEmail はサインイン済みであれば閲覧者のメールを返す。
// 公開ルートでは空文字列となる。
func viewerEmail(r *http.Request) string {
	if sess, err := mw.SessionFromContext(r.Context()); err == nil {
		return sess.Email
	}
	return ""
}

// artifactListResponse は一覧系ルートのレスポンス。
type artifactListResponse struct {
	Data []artifactResponse `json:"data"`
}

// Home はいいね数上位の遺物を返す。
// GET /
func (h *ArtifactHandler) Home(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.service.TopLiked(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactListResponse{Data: toArtifactResponses(artifacts, viewerEmail(r))})
}

// ListAll は全遺物カタログを返す。
// search・type・sortクエリパラメータで検索・絞り込み・並べ替えができる。
// GET /all-artifacts
func (h *ArtifactHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	query := r.URL.Query()
	artifacts = filterArtifacts(artifacts, query.Get("search"), query.Get("type"))
	sortArtifacts(artifacts, query.Get("sort"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactListResponse{Data: toArtifactResponses(artifacts, viewerEmail(r))})
}

// filterArtifacts は検索語（名前・説明・発見者の部分一致、大文字小文字を
// 区別しない）と種別で遺物を絞り込む。種別が空または"all"なら全種別が対象。
func filterArtifacts(artifacts []*model.Artifact, search, artifactType string) []*model.Artifact {
	if search == "" && (artifactType == "" || artifactType == "all") {
		return artifacts
	}

	term := strings.ToLower(search)
	filtered := make([]*model.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if term != "" &&
			!strings.Contains(strings.ToLower(a.Name), term) &&
			!strings.Contains(strings.ToLower(a.Description), term) &&
			!strings.Contains(strings.ToLower(a.DiscoveredBy), term) {
			continue
		}
		if artifactType != "" && artifactType != "all" && string(a.Type) != artifactType {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

// sortArtifacts は遺物を並べ替える。name・typeは昇順、createdAtは新しい順。
// 未指定はname、未知のキーはリモートAPIの順序を保つ。
func sortArtifacts(artifacts []*model.Artifact, sortBy string) {
	if sortBy == "" {
		sortBy = "name"
	}
	switch sortBy {
	case "name":
		sort.SliceStable(artifacts, func(i, j int) bool {
			return artifacts[i].Name < artifacts[j].Name
		})
	case "type":
		sort.SliceStable(artifacts, func(i, j int) bool {
			return artifacts[i].Type < artifacts[j].Type
		})
	case "createdAt":
		sort.SliceStable(artifacts, func(i, j int) bool {
			return artifacts[i].CreatedAt > artifacts[j].CreatedAt
		})
	}
}

// Detail は遺物詳細のビューモデルを返す。
// GET /artifacts/{id}
func (h *ArtifactHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidArtifactIDError())
		return
	}

	artifact, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArtifactResponse(artifact, viewerEmail(r)))
}

// likeResponse はいいねトグルのレスポンス。
type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Like はいいねトグルを処理する。
// 所有者自身によるいいねはリモート呼び出しの前に拒否する。
// サーバーが返したlikedの真偽値をそのまま採用し、ローカルの先行反転はしない。
// POST /artifacts/{id}/like
func (h *ArtifactHandler) Like(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidArtifactIDError())
		return
	}

	artifact, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 自分の投稿へのいいねはネットワーク到達前に拒否する
	if err := gate.CheckLike(artifact, sess.Email); err != nil {
		if h.metrics != nil {
			h.metrics.RecordSelfLikeRejected()
		}
		handleServiceError(w, err)
		return
	}

	// 同一セッション・同一遺物への多重トグルは先行要求のみ通す
	if !h.toggles.Begin(sess.ID, id) {
		writeAPIErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     "TOGGLE_IN_FLIGHT",
			Message:  "A like request is already in progress.",
			Category: "api",
			Action:   "Wait for the current request to finish.",
		})
		return
	}
	defer h.toggles.End(sess.ID, id)

	state := gate.NewLikeState()
	state.Resolve(gate.IsLikedBy(artifact, sess.Email), artifact.LikeCount())
	state.BeginToggle()

	liked, err := h.service.ToggleLike(r.Context(), id, sess.Email)
	if err != nil {
		// 失敗時は送信前の状態に戻し、エラーのみ返す
		state.FailToggle()
		handleServiceError(w, err)
		return
	}

	state.ApplyToggle(liked)
	if h.metrics != nil {
		h.metrics.RecordLikeToggle(liked)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(likeResponse{
		Liked:     state.Status() == gate.LikeStatusLiked,
		LikeCount: state.Count(),
	})
}

// artifactFormRequest は遺物登録・更新リクエストのボディ。
type artifactFormRequest struct {
	Name              string `json:"name"`
	ImageURL          string `json:"imageUrl"`
	Type              string `json:"type"`
	HistoricalContext string `json:"historicalContext"`
	Description       string `json:"description"`
	CreatedAt         string `json:"createdAt"`
	DiscoveredAt      string `json:"discoveredAt"`
	DiscoveredBy      string `json:"discoveredBy"`
	PresentLocation   string `json:"presentLocation"`
}

// addArtifactResponse は遺物登録のレスポンス。
type addArtifactResponse struct {
	InsertedID string `json:"insertedId"`
}

// Add は遺物の新規登録を処理する。
// バリデーション違反が1つでもあればリモート呼び出しは発行しない。
// POST /add-artifacts
func (h *ArtifactHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req artifactFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	artifact, ok := h.validateAndBuild(w, req, "add_artifact")
	if !ok {
		return
	}

	// 所有者は送信時点のアイデンティティで確定し、以後不変
	artifact.Email = sess.Email
	artifact.LikedBy = nil

	insertedID, err := h.service.Add(r.Context(), sess.Token, artifact)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(addArtifactResponse{InsertedID: insertedID})
}

// addFormResponse は登録フォームのビューモデル。
type addFormResponse struct {
	Types []model.ArtifactType `json:"types"`
}

// AddForm は遺物登録フォームのビューモデルを返す。
// GET /add-artifacts
func (h *ArtifactHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	if _, err := mw.SessionFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(addFormResponse{Types: model.ArtifactTypes()})
}

// updateFormResponse は更新フォームのビューモデル。既存レコードを初期値として返す。
type updateFormResponse struct {
	Types    []model.ArtifactType `json:"types"`
	Artifact artifactResponse     `json:"artifact"`
}

// UpdateForm は遺物更新フォームのビューモデルを返す。所有者のみ取得できる。
// GET /update-artifact/{id}
func (h *ArtifactHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidArtifactIDError())
		return
	}

	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !gate.CanModify(existing, sess.Email) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updateFormResponse{
		Types:    model.ArtifactTypes(),
		Artifact: toArtifactResponse(existing, sess.Email),
	})
}

// Mine は閲覧者自身が所有する遺物の一覧を返す。
// GET /my-artifacts/{email}
func (h *ArtifactHandler) Mine(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// 他人のコレクションは閲覧できない
	if chi.URLParam(r, "email") != sess.Email {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
		return
	}

	artifacts, err := h.service.Mine(r.Context(), sess.Token, sess.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// サーバー側フィルタとクライアント側フィルタは同じ述語を持つ。
	// 取得結果にも所有フィルタを適用し、順序を保ったまま返す。
	owned := gate.OwnedBy(artifacts, sess.Email)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactListResponse{Data: toArtifactResponses(owned, sess.Email)})
}

// Liked は閲覧者がいいねした遺物の一覧を返す。
// GET /liked-artifacts/{email}
func (h *ArtifactHandler) Liked(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if chi.URLParam(r, "email") != sess.Email {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
		return
	}

	artifacts, err := h.service.LikedBy(r.Context(), sess.Token, sess.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifactListResponse{Data: toArtifactResponses(artifacts, sess.Email)})
}

// Update は遺物レコードの全置換更新を処理する。
// 所有者のみが更新でき、所有者フィールドとlikedByは変更されない。
// PUT /update-artifact/{id}
func (h *ArtifactHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidArtifactIDError())
		return
	}

	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !gate.CanModify(existing, sess.Email) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
		return
	}

	var req artifactFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	artifact, ok := h.validateAndBuild(w, req, "update_artifact")
	if !ok {
		return
	}

	// 所有者といいね集合は全置換の対象外
	artifact.ID = existing.ID
	artifact.Email = existing.Email
	artifact.LikedBy = existing.LikedBy

	if err := h.service.Update(r.Context(), sess.Token, id, artifact); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toArtifactResponse(artifact, sess.Email))
}

// deleteArtifactResponse は遺物削除のレスポンス。
type deleteArtifactResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// Delete は遺物の削除を処理する。所有者のみが削除できる。
// DELETE /my-artifact/{id}
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := mw.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidArtifactIDError())
		return
	}

	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !gate.CanModify(existing, sess.Email) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
		return
	}

	deletedCount, err := h.service.Delete(r.Context(), sess.Token, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteArtifactResponse{DeletedCount: deletedCount})
}

// validateAndBuild はフォームを検証し、サニタイズ済みの遺物モデルを組み立てる。
// 違反があればエラーレスポンスを書き込みfalseを返す。
func (h *ArtifactHandler) validateAndBuild(w http.ResponseWriter, req artifactFormRequest, formName string) (*model.Artifact, bool) {
	form := validation.ArtifactForm{
		Name:              req.Name,
		ImageURL:          req.ImageURL,
		Type:              req.Type,
		HistoricalContext: req.HistoricalContext,
		Description:       req.Description,
		CreatedAt:         req.CreatedAt,
		DiscoveredAt:      req.DiscoveredAt,
		DiscoveredBy:      req.DiscoveredBy,
		PresentLocation:   req.PresentLocation,
	}
	if errs := validation.ValidateArtifactForm(form); len(errs) > 0 {
		if h.metrics != nil {
			h.metrics.RecordValidationRejected(formName)
		}
		writeValidationErrorResponse(w, errs)
		return nil, false
	}

	// 画像URLはプライベートネットワークを指していないことも検証する
	if err := h.validator.ValidateImageURL(req.ImageURL); err != nil {
		if h.metrics != nil {
			h.metrics.RecordValidationRejected(formName)
		}
		handleServiceError(w, err)
		return nil, false
	}

	return &model.Artifact{
		Name:              h.sanitizer.SanitizeText(req.Name),
		Type:              model.ArtifactType(req.Type),
		Description:       h.sanitizer.SanitizeText(req.Description),
		HistoricalContext: h.sanitizer.SanitizeText(req.HistoricalContext),
		ImageURL:          req.ImageURL,
		CreatedAt:         h.sanitizer.SanitizeText(req.CreatedAt),
		DiscoveredAt:      h.sanitizer.SanitizeText(req.DiscoveredAt),
		DiscoveredBy:      h.sanitizer.SanitizeText(req.DiscoveredBy),
		PresentLocation:   h.sanitizer.SanitizeText(req.PresentLocation),
	}, true
}

// invalidArtifactIDError は空または不正な遺物IDのエラーを返す。
func invalidArtifactIDError() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeInvalidArtifactID,
		Message:  "The artifact ID is missing or malformed.",
		Category: "validation",
		Action:   "Check the link and try again.",
	}
}
