// Package artifact はリモートアーティファクトAPIのクライアントを提供する。
//
// 遺物レコードの永続化はすべてリモートAPI側にあり、本アプリは
// ビューごとの一時的なコピーを保持するのみ。リトライ・キャッシュ・
// リクエストの重複排除は行わない。
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// RemoteRecorder はリモートAPI呼び出しのメトリクス記録に必要なインターフェース。
type RemoteRecorder interface {
	RecordRemoteCall(operation string, statusCode int)
	RecordRemoteLatency(operation string, duration time.Duration)
}

// Config はClientの設定。
type Config struct {
	BaseURL string

	// HTTPClientにはSSRFガード済みクライアントを渡す。
	// 未指定の場合はhttp.DefaultClientを使用する。
	HTTPClient *http.Client

	// レスポンスボディの最大読み取りサイズ（バイト）。0なら無制限。
	MaxResponseSize int64

	// Metricsが非nilの場合、呼び出しごとに操作名・ステータス・レイテンシを記録する。
	Metrics RemoteRecorder
}

// Client はリモートアーティファクトAPIを呼び出すHTTPクライアント。
// 全メソッドはcontextによるキャンセルに対応する。ビューの破棄時には
// リクエストコンテキストのキャンセルで実行中の呼び出しが中断される。
type Client struct {
	config Config
	client *http.Client
}

// NewClient はClientを生成する。
func NewClient(config Config) *Client {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{config: config, client: client}
}

// artifactPayload はリモートAPIとの間でやり取りする遺物レコードの表現。
type artifactPayload struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Description       string   `json:"description"`
	HistoricalContext string   `json:"historicalContext"`
	ImageURL          string   `json:"imageUrl"`
	CreatedAt         string   `json:"createdAt"`
	DiscoveredAt      string   `json:"discoveredAt"`
	DiscoveredBy      string   `json:"discoveredBy"`
	PresentLocation   string   `json:"presentLocation"`
	Email             string   `json:"email"`
	LikedBy           []string `json:"likedBy"`
}

func (p *artifactPayload) toModel() *model.Artifact {
	return &model.Artifact{
		ID:                p.ID,
		Name:              p.Name,
		Type:              model.ArtifactType(p.Type),
		Description:       p.Description,
		HistoricalContext: p.HistoricalContext,
		ImageURL:          p.ImageURL,
		CreatedAt:         p.CreatedAt,
		DiscoveredAt:      p.DiscoveredAt,
		DiscoveredBy:      p.DiscoveredBy,
		PresentLocation:   p.PresentLocation,
		Email:             p.Email,
		LikedBy:           p.LikedBy,
	}
}

func toPayload(a *model.Artifact) *artifactPayload {
	return &artifactPayload{
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
		LikedBy:           a.LikedBy,
	}
}

func toModels(payloads []*artifactPayload) []*model.Artifact {
	artifacts := make([]*model.Artifact, 0, len(payloads))
	for _, p := range payloads {
		artifacts = append(artifacts, p.toModel())
	}
	return artifacts
}

// IssueToken はアイデンティティのメールをベアラートークンに交換する。
func (c *Client) IssueToken(ctx context.Context, email string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "issue_token", http.MethodPost, "/jwt", "", map[string]string{"email": email}, &resp, nil); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("empty token in response")
	}
	return resp.Token, nil
}

// TopLiked はホーム画面用のいいね数上位の遺物を取得する。
func (c *Client) TopLiked(ctx context.Context) ([]*model.Artifact, error) {
	var resp struct {
		Data []*artifactPayload `json:"data"`
	}
	if err := c.do(ctx, "top_liked", http.MethodGet, "/top-liked-artifacts", "", nil, &resp, nil); err != nil {
		return nil, err
	}
	return toModels(resp.Data), nil
}

// List は全遺物カタログを取得する。
func (c *Client) List(ctx context.Context) ([]*model.Artifact, error) {
	var resp struct {
		Data []*artifactPayload `json:"data"`
	}
	if err := c.do(ctx, "list", http.MethodGet, "/artifacts", "", nil, &resp, nil); err != nil {
		return nil, err
	}
	return toModels(resp.Data), nil
}

// Get は指定IDの遺物詳細を取得する。
func (c *Client) Get(ctx context.Context, id string) (*model.Artifact, error) {
	var resp struct {
		Data *artifactPayload `json:"data"`
	}
	if err := c.do(ctx, "get", http.MethodGet, "/artifact-details/"+url.PathEscape(id), "", nil, &resp, model.NewArtifactNotFoundError(id)); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, model.NewArtifactNotFoundError(id)
	}
	return resp.Data.toModel(), nil
}

// Mine は指定アイデンティティが所有する遺物を取得する。
// サーバー側のフィルタはクライアント側の所有フィルタと同じ述語を持つ。
func (c *Client) Mine(ctx context.Context, token, email string) ([]*model.Artifact, error) {
	var resp struct {
		Data []*artifactPayload `json:"data"`
	}
	if err := c.do(ctx, "mine", http.MethodGet, "/my-artifact/"+url.PathEscape(email), token, nil, &resp, nil); err != nil {
		return nil, err
	}
	return toModels(resp.Data), nil
}

// LikedBy は指定アイデンティティがいいねした遺物を取得する。
// このエンドポイントのみレスポンスがラップされていない配列を返す。
func (c *Client) LikedBy(ctx context.Context, token, email string) ([]*model.Artifact, error) {
	var payloads []*artifactPayload
	if err := c.do(ctx, "liked_by", http.MethodGet, "/liked-artifacts/"+url.PathEscape(email), token, nil, &payloads, nil); err != nil {
		return nil, err
	}
	return toModels(payloads), nil
}

// Add は新しい遺物を登録し、サーバーが割り当てたIDを返す。
func (c *Client) Add(ctx context.Context, token string, a *model.Artifact) (string, error) {
	var resp struct {
		InsertedID string `json:"insertedId"`
	}
	if err := c.do(ctx, "add", http.MethodPost, "/add-artifacts", token, toPayload(a), &resp, nil); err != nil {
		return "", err
	}
	return resp.InsertedID, nil
}

// Update は遺物レコードを全置換で更新する。
func (c *Client) Update(ctx context.Context, token, id string, a *model.Artifact) error {
	return c.do(ctx, "update", http.MethodPut, "/artifacts/"+url.PathEscape(id), token, toPayload(a), nil, model.NewArtifactNotFoundError(id))
}

// ToggleLike はいいねのメンバーシップをサーバー側で反転させ、
// サーバーが決定した新しい状態（いいね済みかどうか）を返す。
// 新しい状態の唯一の決定者はサーバーであり、クライアントは
// 返された真偽値をそのまま採用しなければならない。
func (c *Client) ToggleLike(ctx context.Context, id, email string) (bool, error) {
	var resp struct {
		Liked bool `json:"liked"`
	}
	if err := c.do(ctx, "toggle_like", http.MethodPatch, "/like/"+url.PathEscape(id), "", map[string]string{"email": email}, &resp, model.NewArtifactNotFoundError(id)); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

// Delete は指定IDの遺物を削除し、削除件数を返す。
func (c *Client) Delete(ctx context.Context, token, id string) (int64, error) {
	var resp struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.do(ctx, "delete", http.MethodDelete, "/my-artifact/"+url.PathEscape(id), token, nil, &resp, model.NewArtifactNotFoundError(id)); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// do はリモートAPIへのリクエストを1回実行する。
// 非2xxレスポンスはステータスコードを保持したAPIErrorに変換する。
// notFoundが非nilの場合、404レスポンスはそのエラーとして返す。
func (c *Client) do(ctx context.Context, op, method, path, token string, reqBody, respBody any, notFound error) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordRemoteLatency(op, time.Since(start))
	}
	if err != nil {
		if c.config.Metrics != nil {
			c.config.Metrics.RecordRemoteCall(op, 0)
		}
		return fmt.Errorf("remote api request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.config.Metrics != nil {
		c.config.Metrics.RecordRemoteCall(op, resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if c.config.MaxResponseSize > 0 {
		reader = io.LimitReader(resp.Body, c.config.MaxResponseSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return notFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.NewRemoteAPIError(resp.StatusCode)
	}

	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}
	return nil
}
