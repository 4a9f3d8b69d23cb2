package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/bookstore/internal/store"
)

const defaultSearchEndpoint = "https://openapi.naver.com/v1/search/book.json"

var (
	// ErrSearchUnavailable indicates the upstream search API timed out or was unreachable.
	ErrSearchUnavailable = errors.New("search.unavailable")
	// ErrSearchNoMatch indicates the upstream returned no item for the query.
	ErrSearchNoMatch = errors.New("search.no_match")
)

// SearchConfig configures the upstream book-search client.
type SearchConfig struct {
	ClientID     string
	ClientSecret string
	Endpoint     string
	Timeout      time.Duration
}

// NaverSearchClient proxies queries to the Naver book-search API.
type NaverSearchClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	endpoint     string
}

// NewNaverSearchClient constructs a search client with a bounded timeout.
func NewNaverSearchClient(configuration SearchConfig) *NaverSearchClient {
	endpoint := configuration.Endpoint
	if endpoint == "" {
		endpoint = defaultSearchEndpoint
	}
	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NaverSearchClient{
		httpClient:   &http.Client{Timeout: timeout},
		clientID:     configuration.ClientID,
		clientSecret: configuration.ClientSecret,
		endpoint:     endpoint,
	}
}

type searchResponse struct {
	Total int              `json:"total"`
	Items []searchBookItem `json:"items"`
}

type searchBookItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Image       string `json:"image"`
	Author      string `json:"author"`
	Discount    string `json:"discount"`
	Publisher   string `json:"publisher"`
	Pubdate     string `json:"pubdate"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// Search forwards a query and returns the upstream body and status verbatim.
func (client *NaverSearchClient) Search(ctx context.Context, query string, display int, start int, sort string) ([]byte, int, error) {
	parameters := url.Values{}
	parameters.Set("query", query)
	parameters.Set("display", strconv.Itoa(display))
	parameters.Set("start", strconv.Itoa(start))
	parameters.Set("sort", sort)
	return client.fetch(ctx, parameters)
}

// SearchByISBN resolves one book by its ISBN.
func (client *NaverSearchClient) SearchByISBN(ctx context.Context, isbn string) (store.Book, error) {
	parameters := url.Values{}
	parameters.Set("query", isbn)
	parameters.Set("display", "1")
	body, statusCode, fetchErr := client.fetch(ctx, parameters)
	if fetchErr != nil {
		return store.Book{}, fetchErr
	}
	if statusCode != http.StatusOK {
		return store.Book{}, fmt.Errorf("search.by_isbn: upstream status %d: %w", statusCode, ErrSearchUnavailable)
	}
	var decoded searchResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		return store.Book{}, fmt.Errorf("search.by_isbn.decode: %w", decodeErr)
	}
	if len(decoded.Items) == 0 {
		return store.Book{}, fmt.Errorf("search.by_isbn: %w", ErrSearchNoMatch)
	}
	item := decoded.Items[0]
	return store.Book{
		Title:       item.Title,
		Link:        item.Link,
		Image:       item.Image,
		Author:      item.Author,
		Discount:    item.Discount,
		Publisher:   item.Publisher,
		Pubdate:     item.Pubdate,
		ISBN:        isbn,
		Description: item.Description,
	}, nil
}

func (client *NaverSearchClient) fetch(ctx context.Context, parameters url.Values) ([]byte, int, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, client.endpoint+"?"+parameters.Encode(), nil)
	if requestErr != nil {
		return nil, 0, fmt.Errorf("search.request: %w", requestErr)
	}
	request.Header.Set("X-Naver-Client-Id", client.clientID)
	request.Header.Set("X-Naver-Client-Secret", client.clientSecret)

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return nil, 0, fmt.Errorf("search.fetch: %w", ErrSearchUnavailable)
	}
	defer func() { _ = response.Body.Close() }()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, 0, fmt.Errorf("search.read: %w", ErrSearchUnavailable)
	}
	return body, response.StatusCode, nil
}

// HandleSearch proxies book searches to the upstream API, passing the
// upstream status and body through unchanged.
func HandleSearch(client *NaverSearchClient, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		query := strings.TrimSpace(contextGin.Query("query"))
		if query == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_query"})
			return
		}
		display := positiveIntQuery(contextGin, "display", 10)
		start := positiveIntQuery(contextGin, "start", 1)
		sort := contextGin.DefaultQuery("sort", "sim")

		body, statusCode, searchErr := client.Search(contextGin.Request.Context(), query, display, start, sort)
		if searchErr != nil {
			logger.Warn("book search failed",
				zap.String("code", "search.upstream_failed"),
				zap.Error(searchErr))
			contextGin.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
			return
		}
		contextGin.Data(statusCode, "application/json; charset=utf-8", body)
	}
}
