package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BKrowchuk/Horizon/core"
)

// Terminal console for interrogating a running service. Plain input is sent
// to /api/v1/query; "/search <text>" shows the raw retrieved chunks instead;
// "/meeting <id>" switches the active meeting.

type apiClient struct {
	base string
	hc   *http.Client
}

func (c *apiClient) post(path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	r, err := c.hc.Post(c.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(r.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", r.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", http.MethodPost, path, r.Status)
	}
	return json.NewDecoder(r.Body).Decode(resp)
}

func (c *apiClient) query(meetingID, query string) (core.QueryResult, error) {
	var res core.QueryResult
	err := c.post("/api/v1/query", map[string]string{"meeting_id": meetingID, "query": query}, &res)
	return res, err
}

func (c *apiClient) search(meetingID, query string, topK int) ([]core.SearchResult, error) {
	var res struct {
		Results []core.SearchResult `json:"results"`
	}
	err := c.post("/api/v1/embedding/search", map[string]any{
		"meeting_id": meetingID, "query_text": query, "top_k": topK,
	}, &res)
	return res.Results, err
}

type answerMsg core.QueryResult

type searchMsg struct {
	query   string
	results []core.SearchResult
}

type errMsg struct{ err error }

type model struct {
	client    *apiClient
	meetingID string
	input     textinput.Model
	viewport  viewport.Model
	status    string
	ready     bool
}

func newModel(client *apiClient, meetingID string) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the meeting and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return model{
		client:    client,
		meetingID: meetingID,
		input:     ti,
		viewport:  vp,
		status:    "Connected. Type a question, /search <text>, or /meeting <id>.",
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + meeting line, status, input box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			switch {
			case strings.HasPrefix(line, "/meeting "):
				m.meetingID = strings.TrimSpace(strings.TrimPrefix(line, "/meeting "))
				m.status = "Meeting set to " + m.meetingID
				return m, nil
			case strings.HasPrefix(line, "/search "):
				text := strings.TrimSpace(strings.TrimPrefix(line, "/search "))
				m.status = fmt.Sprintf("Searching %q...", text)
				return m, m.doSearch(text)
			default:
				m.status = fmt.Sprintf("Asking %q...", line)
				return m, m.doQuery(line)
			}
		}

	case answerMsg:
		m.status = fmt.Sprintf("Answer for %q", msg.Query)
		m.viewport.SetContent(renderAnswer(core.QueryResult(msg)))
		m.viewport.GotoTop()
		return m, nil

	case searchMsg:
		m.status = fmt.Sprintf("%d chunks for %q", len(msg.results), msg.query)
		m.viewport.SetContent(renderChunks(msg.results))
		m.viewport.GotoTop()
		return m, nil

	case errMsg:
		m.status = "Error: " + msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) doQuery(query string) tea.Cmd {
	client, meetingID := m.client, m.meetingID
	return func() tea.Msg {
		res, err := client.query(meetingID, query)
		if err != nil {
			return errMsg{err}
		}
		return answerMsg(res)
	}
}

func (m model) doSearch(text string) tea.Cmd {
	client, meetingID := m.client, m.meetingID
	return func() tea.Msg {
		results, err := client.search(meetingID, text, 5)
		if err != nil {
			return errMsg{err}
		}
		return searchMsg{query: text, results: results}
	}
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Horizon Query Console")
	meeting := mutedStyle.Render("meeting: " + m.meetingID)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + meeting + "\n" + results + "\n" + input + "\n" + status
}

func renderAnswer(res core.QueryResult) string {
	var b strings.Builder
	b.WriteString(res.Answer)
	if len(res.Sources) > 0 {
		b.WriteString("\n\n" + mutedStyle.Render("Sources:") + "\n")
		for i, src := range res.Sources {
			b.WriteString(fmt.Sprintf("  %d. chunk %d  score=%.3f\n     %s\n", i+1, src.ChunkID, src.SimilarityScore, src.TextPreview))
		}
	}
	return b.String()
}

func renderChunks(results []core.SearchResult) string {
	if len(results) == 0 {
		return "No chunks retrieved."
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(fmt.Sprintf("%d. chunk %d  score=%.3f\n%s\n\n", r.Rank, r.ChunkID, r.SimilarityScore, r.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func main() {
	serverURL := flag.String("server", envOr("HORIZON_SERVER", "http://localhost:8080"), "base URL of the running service")
	meetingID := flag.String("meeting", "", "meeting id to query")
	flag.Parse()

	if *meetingID == "" && flag.NArg() > 0 {
		*meetingID = flag.Arg(0)
	}
	if *meetingID == "" {
		fmt.Println("Usage: console [--server=http://localhost:8080] --meeting=<meeting_id>")
		os.Exit(1)
	}

	client := &apiClient{
		base: strings.TrimRight(*serverURL, "/"),
		hc:   &http.Client{Timeout: 60 * time.Second},
	}
	if _, err := tea.NewProgram(newModel(client, *meetingID)).Run(); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
