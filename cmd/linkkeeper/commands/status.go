package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"git.home.luguber.info/inful/linkkeeper/internal/dashboard"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Addr      string        `help:"Portal base URL" default:"http://127.0.0.1:80"`
	Dashboard string        `help:"Dashboard base URL, queried for services while attached" default:"http://127.0.0.1:8080"`
	JSON      bool          `help:"Print raw JSON"`
	Timeout   time.Duration `help:"Request timeout" default:"3s"`
}

func (s *StatusCmd) Run(_ *Global, _ *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	client := &http.Client{}

	var st supervisor.Status
	if err := getJSON(ctx, client, strings.TrimRight(s.Addr, "/")+"/status", &st); err != nil {
		return err
	}

	// The dashboard only runs while attached; its absence is not an error.
	var dash *dashboard.StatusResponse
	if st.Role == supervisor.RoleAttached && s.Dashboard != "" {
		var resp dashboard.StatusResponse
		if err := getJSON(ctx, client, strings.TrimRight(s.Dashboard, "/")+"/api/status", &resp); err == nil {
			dash = &resp
		}
	}

	if s.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if dash != nil {
			return enc.Encode(dash)
		}
		return enc.Encode(st)
	}
	fmt.Print(renderStatus(st, dash))
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ferrors.ValidationError("invalid status URL").WithCause(err).WithContext("url", url).Build()
	}
	resp, err := client.Do(req)
	if err != nil {
		return ferrors.RuntimeError("node not reachable").WithCause(err).WithContext("url", url).Build()
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ferrors.RuntimeError("unexpected status response").
			WithContext("url", url).
			WithContext("status", resp.StatusCode).
			WithContext("body", strings.TrimSpace(string(body))).
			Build()
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return ferrors.RuntimeError("malformed status response").WithCause(err).WithContext("url", url).Build()
	}
	return nil
}

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func roleStyle(r supervisor.Role) lipgloss.Style {
	switch r {
	case supervisor.RoleAttached:
		return goodStyle
	case supervisor.RoleAttaching:
		return warnStyle
	case supervisor.RoleFallback:
		return badStyle
	default:
		return lipgloss.NewStyle()
	}
}

func renderStatus(st supervisor.Status, dash *dashboard.StatusResponse) string {
	pairs := [][2]string{
		{"role", roleStyle(st.Role).Render(st.Role.String())},
		{"last error", st.LastError.String()},
		{"readiness pending", strconv.FormatBool(st.ReadinessPending)},
	}
	if st.SSID != "" {
		pairs = append(pairs, [2]string{"network", st.SSID})
	}
	ap := st.AccessPoint
	if st.AccessPointOpen {
		ap += " (open)"
	}
	pairs = append(pairs, [2]string{"access point", ap})
	if st.AttachDeadline != nil {
		pairs = append(pairs, [2]string{"attach deadline", st.AttachDeadline.Local().Format(time.TimeOnly)})
	}

	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	var sb strings.Builder
	for _, p := range pairs {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width+1, p[0]+":")) + " " + p[1] + "\n")
	}

	if dash != nil && len(dash.Services) > 0 {
		rows := make([][]string, 0, len(dash.Services))
		for _, svc := range dash.Services {
			running := badStyle.Render("no")
			if svc.Running {
				running = goodStyle.Render("yes")
			}
			rows = append(rows, []string{svc.Name, running, svc.Health.Status, strconv.Itoa(svc.Starts), svc.LastError})
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("SERVICE", "RUNNING", "HEALTH", "STARTS", "LAST ERROR").
			Rows(rows...)
		sb.WriteString("\n" + t.Render() + "\n")
	}
	return sb.String()
}
