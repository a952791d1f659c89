package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/guri/internal/model"
	"github.com/hitoshi/guri/internal/repository"
)

// --- モック定義 ---

type mockDirectory struct {
	searchByNameFn func(ctx context.Context, term string) ([]string, error)
}

func (m *mockDirectory) SearchByName(ctx context.Context, term string) ([]string, error) {
	if m.searchByNameFn != nil {
		return m.searchByNameFn(ctx, term)
	}
	return []string{}, nil
}

type mockPostRepo struct {
	listFeedFn func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error)
}

func (m *mockPostRepo) Create(_ context.Context, _ *model.Post) error { return nil }

func (m *mockPostRepo) ListFeed(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
	if m.listFeedFn != nil {
		return m.listFeedFn(ctx, authorIDs)
	}
	return []repository.FeedRow{}, nil
}

func (m *mockPostRepo) ListImagesByAuthor(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (m *mockPostRepo) ListReferencedImages(_ context.Context) (map[string]struct{}, error) {
	return nil, nil
}

type mockResolver struct {
	followStatesFn func(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error)
}

func (m *mockResolver) FollowStates(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
	if m.followStatesFn != nil {
		return m.followStatesFn(ctx, viewerID, authorIDs)
	}
	return map[string]bool{}, nil
}

type mockURLs struct{}

func (mockURLs) PublicURL(name string) string {
	return "http://localhost:8080/media/" + name
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

// --- テスト ---

func TestListFeed_EmptyQuery_ReturnsAllPosts(t *testing.T) {
	now := time.Now()
	var gotAuthorIDs []string

	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			gotAuthorIDs = authorIDs
			return []repository.FeedRow{
				{PostID: "p2", AuthorID: "u2", AuthorName: "Bob", AuthorNameValid: true, Images: []string{"b.jpg"}, PostedAt: now},
				{PostID: "p1", AuthorID: "u1", AuthorName: "Alice", AuthorNameValid: true, Images: []string{"a.jpg"}, PostedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	svc := NewService(&mockDirectory{}, posts, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	// 絞り込みなし（authorIDs空）で全投稿を取得すること
	if len(gotAuthorIDs) != 0 {
		t.Errorf("authorIDs = %v, want empty", gotAuthorIDs)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].PostID != "p2" || entries[1].PostID != "p1" {
		t.Errorf("entries should preserve repository order (newest first): %v, %v", entries[0].PostID, entries[1].PostID)
	}
}

func TestListFeed_WhitespaceQuery_TreatedAsEmpty(t *testing.T) {
	searchCalled := false
	directory := &mockDirectory{
		searchByNameFn: func(ctx context.Context, term string) ([]string, error) {
			searchCalled = true
			return nil, nil
		},
	}
	svc := NewService(directory, &mockPostRepo{}, &mockResolver{}, mockURLs{}, nil)

	_, err := svc.ListFeed(context.Background(), "viewer-1", "   ")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}
	if searchCalled {
		t.Error("whitespace-only query should not trigger a name search")
	}
}

func TestListFeed_QueryFiltersAuthors(t *testing.T) {
	var gotTerm string
	var gotAuthorIDs []string

	directory := &mockDirectory{
		searchByNameFn: func(ctx context.Context, term string) ([]string, error) {
			gotTerm = term
			return []string{"u1", "u3"}, nil
		},
	}
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			gotAuthorIDs = authorIDs
			return []repository.FeedRow{
				{PostID: "p1", AuthorID: "u1", AuthorName: "Amina", AuthorNameValid: true},
			}, nil
		},
	}
	svc := NewService(directory, posts, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "  ami ")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	// 検索語は前後空白を除いて渡されること
	if gotTerm != "ami" {
		t.Errorf("search term = %q, want %q", gotTerm, "ami")
	}
	if len(gotAuthorIDs) != 2 || gotAuthorIDs[0] != "u1" || gotAuthorIDs[1] != "u3" {
		t.Errorf("authorIDs = %v, want [u1 u3]", gotAuthorIDs)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

func TestListFeed_NoNameMatch_ReturnsEmptyWithoutListing(t *testing.T) {
	listCalled := false
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			listCalled = true
			return nil, nil
		},
	}
	directory := &mockDirectory{
		searchByNameFn: func(ctx context.Context, term string) ([]string, error) {
			return []string{}, nil
		},
	}
	svc := NewService(directory, posts, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "nobody")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	// 一致なしは全投稿フォールバックではなく空フィード
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
	if listCalled {
		t.Error("post listing should be short-circuited when no names match")
	}
}

func TestListFeed_SearchError_ReturnsEmptyFeed(t *testing.T) {
	directory := &mockDirectory{
		searchByNameFn: func(ctx context.Context, term string) ([]string, error) {
			return nil, errors.New("directory unavailable")
		},
	}
	svc := NewService(directory, &mockPostRepo{}, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "ami")
	if err != nil {
		t.Fatalf("ListFeed() should not propagate search errors, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestListFeed_ResolvesFirstImageURL(t *testing.T) {
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			return []repository.FeedRow{
				{PostID: "p1", AuthorID: "u1", AuthorName: "Alice", AuthorNameValid: true, Images: []string{"first.jpg", "second.jpg"}},
				{PostID: "p2", AuthorID: "u2", AuthorName: "Bob", AuthorNameValid: true, Images: nil},
			}, nil
		},
	}
	svc := NewService(&mockDirectory{}, posts, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	if entries[0].ImageURL != "http://localhost:8080/media/first.jpg" {
		t.Errorf("ImageURL = %q, want first image URL", entries[0].ImageURL)
	}
	// 画像なし投稿はURLなし
	if entries[1].ImageURL != "" {
		t.Errorf("ImageURL = %q, want empty for post without images", entries[1].ImageURL)
	}
}

func TestListFeed_UnknownAuthorName_UsesSentinel(t *testing.T) {
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			return []repository.FeedRow{
				{PostID: "p1", AuthorID: "u-gone", AuthorNameValid: false},
			}, nil
		},
	}
	svc := NewService(&mockDirectory{}, posts, &mockResolver{}, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}
	if entries[0].AuthorName != "Unknown User" {
		t.Errorf("AuthorName = %q, want %q", entries[0].AuthorName, "Unknown User")
	}
}

func TestListFeed_AttachesFollowStates(t *testing.T) {
	var gotViewer string
	var gotAuthors []string

	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			return []repository.FeedRow{
				{PostID: "p1", AuthorID: "u1", AuthorName: "Alice", AuthorNameValid: true},
				{PostID: "p2", AuthorID: "u2", AuthorName: "Bob", AuthorNameValid: true},
				{PostID: "p3", AuthorID: "u1", AuthorName: "Alice", AuthorNameValid: true},
			}, nil
		},
	}
	resolver := &mockResolver{
		followStatesFn: func(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
			gotViewer = viewerID
			gotAuthors = authorIDs
			return map[string]bool{"u1": true, "u2": false}, nil
		},
	}
	svc := NewService(&mockDirectory{}, posts, resolver, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}

	if gotViewer != "viewer-1" {
		t.Errorf("viewerID = %q, want %q", gotViewer, "viewer-1")
	}
	// 投稿者は重複を除いて解決されること
	if len(gotAuthors) != 2 {
		t.Errorf("authors = %v, want 2 unique IDs", gotAuthors)
	}
	if !entries[0].Following {
		t.Error("entries[0] (u1) should be following")
	}
	if entries[1].Following {
		t.Error("entries[1] (u2) should not be following")
	}
	if !entries[2].Following {
		t.Error("entries[2] (u1) should be following")
	}
}

func TestListFeed_FollowStateError_DefaultsToNotFollowing(t *testing.T) {
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			return []repository.FeedRow{
				{PostID: "p1", AuthorID: "u1", AuthorName: "Alice", AuthorNameValid: true},
			}, nil
		},
	}
	resolver := &mockResolver{
		followStatesFn: func(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
			return nil, errors.New("follow store unavailable")
		},
	}
	svc := NewService(&mockDirectory{}, posts, resolver, mockURLs{}, nil)

	entries, err := svc.ListFeed(context.Background(), "viewer-1", "")
	if err != nil {
		t.Fatalf("ListFeed() should not propagate follow state errors, got %v", err)
	}
	if entries[0].Following {
		t.Error("follow state should default to false on resolution failure")
	}
}

func TestListFeed_PostListError_Propagates(t *testing.T) {
	posts := &mockPostRepo{
		listFeedFn: func(ctx context.Context, authorIDs []string) ([]repository.FeedRow, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(&mockDirectory{}, posts, &mockResolver{}, mockURLs{}, nil)

	if _, err := svc.ListFeed(context.Background(), "viewer-1", ""); err == nil {
		t.Fatal("ListFeed should propagate post listing errors")
	}
}
