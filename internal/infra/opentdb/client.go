package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
)

const defaultBaseURL = "https://opentdb.com/api.php"

// RawQuestion mirrors the OpenTriviaDB question payload.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Client turns Open Trivia DB questions into quiz drafts. The trivia API has no
// free-text topic search, so the topic only names the draft.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]RawQuestion, error) {
	reqURL := c.baseURL + "?type=multiple&amount=" + strconv.Itoa(amount)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode opentdb response: %w", err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}
	return payload.Results, nil
}

// GenerateDraft implements app.DraftGenerator.
func (c *Client) GenerateDraft(ctx context.Context, topic string, count int) (domain.NewQuiz, error) {
	raw, err := c.FetchQuestions(ctx, count)
	if err != nil {
		return domain.NewQuiz{}, err
	}

	draft := domain.NewQuiz{
		Title:     "Trivia: " + topic,
		Questions: make([]domain.NewQuestion, 0, len(raw)),
	}
	for _, q := range raw {
		options := make([]domain.NewOption, 0, len(q.IncorrectAnswers)+1)
		options = append(options, domain.NewOption{OptionText: html.UnescapeString(q.CorrectAnswer), IsCorrect: true})
		for _, wrong := range q.IncorrectAnswers {
			options = append(options, domain.NewOption{OptionText: html.UnescapeString(wrong)})
		}
		c.shuffle(options)

		draft.Questions = append(draft.Questions, domain.NewQuestion{
			QuestionText: strings.TrimSpace(html.UnescapeString(q.Question)),
			Options:      options,
		})
	}
	return draft, nil
}

func (c *Client) shuffle(options []domain.NewOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}
