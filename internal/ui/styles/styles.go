// Package styles holds the dashboard palette and the lipgloss styles shared
// across tabs.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// Palette. ANSI 256 codes so the theme survives limited terminals.
var (
	Primary   = lipgloss.Color("212")
	Secondary = lipgloss.Color("99")
	Subtle    = lipgloss.Color("241")

	ElevenLabs = lipgloss.Color("214")
	OpenAI     = lipgloss.Color("37")

	Success = lipgloss.Color("78")
	Error   = lipgloss.Color("203")
	Warning = lipgloss.Color("221")
	Info    = lipgloss.Color("75")

	BgDark  = lipgloss.Color("234")
	BgLight = lipgloss.Color("238")

	TextPrimary   = lipgloss.Color("253")
	TextSecondary = lipgloss.Color("246")
	TextMuted     = lipgloss.Color("242")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func boxed(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		MarginBottom(1)
}

// Layout.
var (
	DocStyle           = lipgloss.NewStyle().Margin(1, 2).Padding(0, 1)
	CardStyle          = boxed(Subtle)
	HighlightCardStyle = boxed(Secondary)

	TitleStyle     = fg(Primary).Bold(true).MarginBottom(1)
	SubTitleStyle  = fg(Secondary).Bold(true).MarginBottom(1)
	CardTitleStyle = TitleStyle

	TableHeaderStyle = fg(Primary).Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(Subtle)
)

// Text.
var (
	LabelStyle         = fg(TextSecondary)
	ValueStyle         = fg(TextPrimary).Bold(true)
	MoneyStyle         = fg(Success).Bold(true)
	ProgressLabelStyle = fg(TextSecondary).Width(20)

	ErrorTextStyle   = fg(Error)
	SuccessTextStyle = fg(Success)
	WarningTextStyle = fg(Warning)
	InfoTextStyle    = fg(Info)
)

// Help, navbar and toasts.
var (
	HelpStyle      = fg(TextMuted)
	HelpKeyStyle   = fg(Primary).Bold(true)
	HelpDescStyle  = fg(TextSecondary)
	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(Secondary).
			Background(BgDark).
			Padding(1, 3)

	NavBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Subtle)
	NavActiveStyle   = fg(BgDark).Background(Primary).Bold(true).Padding(0, 1)
	NavInactiveStyle = fg(TextSecondary).Padding(0, 1)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)
)

// GetShareStyle colors a cost share: large shares of the bill stand out.
func GetShareStyle(percent float64) lipgloss.Style {
	switch {
	case percent > 60:
		return ErrorTextStyle
	case percent > 25:
		return WarningTextStyle
	default:
		return SuccessTextStyle
	}
}

// GetSavingsStyle colors a savings percentage.
func GetSavingsStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 20:
		return SuccessTextStyle
	case percent > 0:
		return InfoTextStyle
	case percent < 0:
		return ErrorTextStyle
	default:
		return HelpStyle
	}
}

// BudgetStyle colors text by budget status.
func BudgetStyle(s models.BudgetStatus) lipgloss.Style {
	switch s {
	case models.BudgetCritical:
		return ErrorTextStyle
	case models.BudgetWarning:
		return WarningTextStyle
	case models.BudgetSafe:
		return SuccessTextStyle
	default:
		return HelpStyle
	}
}

// ProviderColor returns the brand color of a provider.
func ProviderColor(p models.Provider) lipgloss.Color {
	switch p {
	case models.ProviderElevenLabs:
		return ElevenLabs
	case models.ProviderOpenAI:
		return OpenAI
	default:
		return Secondary
	}
}

// CenterHorizontal centers content in a line of the given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

// CenterBoth centers content in a width × height box.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
