package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultDiscourseMaxPages = 10

// DiscourseProvider searches a Discourse forum through its search.json API.
type DiscourseProvider struct {
	BaseURL  string
	APIKey   string
	APIUser  string
	Client   *http.Client
	MaxPages int
}

// NewDiscourseProvider creates a provider for the forum at baseURL.
func NewDiscourseProvider(baseURL string, client *http.Client) *DiscourseProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &DiscourseProvider{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   client,
		MaxPages: defaultDiscourseMaxPages,
	}
}

type discourseSearch struct {
	Posts []struct {
		ID         int       `json:"id"`
		Username   string    `json:"username"`
		CreatedAt  time.Time `json:"created_at"`
		LikeCount  int       `json:"like_count"`
		Blurb      string    `json:"blurb"`
		PostNumber int       `json:"post_number"`
		TopicID    int       `json:"topic_id"`
	} `json:"posts"`
	Topics []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		Slug       string `json:"slug"`
		ReplyCount int    `json:"reply_count"`
	} `json:"topics"`
	Grouped struct {
		MoreFullPageResults bool `json:"more_full_page_results"`
	} `json:"grouped_search_result"`
}

// FetchForumPosts implements ForumProvider.
func (p *DiscourseProvider) FetchForumPosts(ctx context.Context, window DateRange, category string) ([]ContentItem, error) {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultDiscourseMaxPages
	}

	var items []ContentItem
	for page := 1; page <= maxPages; page++ {
		res, err := p.search(ctx, window, category, page)
		if err != nil {
			return nil, err
		}
		items = append(items, p.toItems(res, category)...)
		if !res.Grouped.MoreFullPageResults || len(res.Posts) == 0 {
			break
		}
	}
	return items, nil
}

func (p *DiscourseProvider) search(ctx context.Context, window DateRange, category string, page int) (*discourseSearch, error) {
	// Discourse treats before: as exclusive.
	q := fmt.Sprintf("after:%s before:%s",
		window.Start.AddDate(0, 0, -1).Format(DateLayout),
		window.End.AddDate(0, 0, 1).Format(DateLayout),
	)
	if category != "" {
		q = "#" + category + " " + q
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("page", strconv.Itoa(page))

	endpoint := p.BaseURL + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrSourceFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Api-Key", p.APIKey)
		req.Header.Set("Api-Username", p.APIUser)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrSourceFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: search: status %d", ErrSourceFailure, resp.StatusCode)
	}

	var res discourseSearch
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", ErrSourceFailure, err)
	}
	return &res, nil
}

func (p *DiscourseProvider) toItems(res *discourseSearch, category string) []ContentItem {
	type topicInfo struct {
		title   string
		slug    string
		replies int
	}
	topics := make(map[int]topicInfo, len(res.Topics))
	for _, t := range res.Topics {
		topics[t.ID] = topicInfo{title: t.Title, slug: t.Slug, replies: t.ReplyCount}
	}

	items := make([]ContentItem, 0, len(res.Posts))
	for _, post := range res.Posts {
		t := topics[post.TopicID]
		created := post.CreatedAt.UTC()
		item := ContentItem{
			ID:        strconv.Itoa(post.ID),
			Title:     t.title,
			Body:      post.Blurb,
			URL:       fmt.Sprintf("%s/t/%s/%d/%d", p.BaseURL, t.slug, post.TopicID, post.PostNumber),
			Category:  category,
			Author:    post.Username,
			Replies:   t.replies,
			Likes:     post.LikeCount,
			Timestamp: &created,
		}
		if post.CreatedAt.IsZero() {
			item.Timestamp = nil
		}
		items = append(items, item)
	}
	return items
}
