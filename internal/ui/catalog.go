package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/Mohsinsiddi/w3market/internal/contract"
	"github.com/Mohsinsiddi/w3market/internal/market"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// BrowserConfig is the input of RunCatalog.
type BrowserConfig struct {
	Title       string
	Items       []contract.Item
	Account     common.Address // zero when no wallet is connected
	Currency    string
	Query       string // initial search
	ExplorerURL string // contract page, opened with "o"
}

// Selection is the action the user picked in the browser.
type Selection struct {
	Action market.Action
	ItemID uint64
}

// catalogModel is the bubbletea model for the interactive catalog.
type catalogModel struct {
	cfg       BrowserConfig
	query     string
	searching bool
	cursor    int
	choice    *Selection
	flash     string
}

func newCatalogModel(cfg BrowserConfig) catalogModel {
	return catalogModel{cfg: cfg, query: cfg.Query}
}

func (m catalogModel) Init() tea.Cmd { return nil }

func (m catalogModel) visible() []contract.Item {
	return market.Filter(m.cfg.Items, m.query)
}

func (m catalogModel) current() (contract.Item, bool) {
	rows := m.visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return contract.Item{}, false
	}
	return rows[m.cursor], true
}

func (m catalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.flash = ""

	if m.searching {
		switch key.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.searching = false
		case tea.KeyBackspace:
			if r := []rune(m.query); len(r) > 0 {
				m.query = string(r[:len(r)-1])
			}
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeySpace:
			m.query += " "
		case tea.KeyRunes:
			m.query += string(key.Runes)
		}
		m.cursor = clamp(m.cursor, len(m.visible()))
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.searching = true

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}

	case "b", "t", "enter":
		it, ok := m.current()
		if !ok {
			break
		}
		want := ActionLabel(it, m.cfg.Account)
		switch {
		case want == "":
			m.flash = "No action available on this item"
		case key.String() == "b" && want != "buy":
			m.flash = "Item cannot be bought"
		case key.String() == "t" && want != "transfer":
			m.flash = "Only the owner can transfer"
		default:
			m.choice = &Selection{Action: market.Action(want), ItemID: it.ID}
			return m, tea.Quit
		}

	case "c":
		if it, ok := m.current(); ok {
			if err := copyToClipboard(it.Owner.Hex()); err == nil {
				m.flash = "Copied owner " + TruncateAddr(it.Owner.Hex())
			} else {
				m.flash = "Copy failed: " + err.Error()
			}
		}

	case "o":
		if m.cfg.ExplorerURL == "" {
			m.flash = "No explorer for this network"
		} else {
			openBrowser(m.cfg.ExplorerURL)
			m.flash = "Opening in browser…"
		}
	}
	return m, nil
}

func (m catalogModel) View() string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.cfg.Title))
	sb.WriteString("\n")

	search := StyleMeta.Render("search: ") + StyleValue.Render(m.query)
	if m.searching {
		search += StyleWarning.Render("▌")
	}
	sb.WriteString(search + "\n\n")

	rows := m.visible()
	if len(rows) == 0 {
		sb.WriteString(StyleMeta.Render("  no items match") + "\n")
	} else {
		t := ItemTable(rows, m.cfg.Account, m.cfg.Currency)
		t.SelIdx = m.cursor
		sb.WriteString(t.Render())
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleInfo.Render("  " + m.flash))
	} else {
		sb.WriteString(catalogControls(m.searching))
	}
	sb.WriteString("\n")
	return sb.String()
}

func catalogControls(searching bool) string {
	if searching {
		return StyleMeta.Render("[ type ] search   [ Enter/Esc ] done")
	}
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ↑↓ ] navigate"))
	sb.WriteString(sep)
	sb.WriteString(StyleInfo.Render("[ / ]") + StyleMeta.Render(" search"))
	sb.WriteString(sep)
	sb.WriteString(StyleSuccess.Render("[ b ]") + StyleMeta.Render(" buy"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ t ]") + StyleMeta.Render(" transfer"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ c ] copy owner   [ o ] explorer   [ q ] quit"))
	return sb.String()
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// RunCatalog shows the interactive catalog browser. It returns the chosen
// action, or nil when the user quits without choosing.
func RunCatalog(cfg BrowserConfig) (*Selection, error) {
	p := tea.NewProgram(newCatalogModel(cfg), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("catalog browser: %w", err)
	}
	return final.(catalogModel).choice, nil
}

// openBrowser opens url in the OS default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

// copyToClipboard writes text to the system clipboard.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("clip")
	default:
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	_, _ = io.WriteString(stdin, text)
	stdin.Close()
	return cmd.Wait()
}
