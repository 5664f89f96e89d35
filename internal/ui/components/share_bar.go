package components

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

const (
	gradientFrom = "#51cf66"
	gradientTo   = "#ff6b6b"
)

// AnimationTickMsg advances share bar animations.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// ShareBar renders a labelled percentage bar that eases towards its target
// whenever the estimate changes.
type ShareBar struct {
	progress progress.Model
	label    string
	color    lipgloss.Color

	animating bool
	target    float64
	current   float64
}

// NewShareBar creates a share bar filled with a solid color.
func NewShareBar(label string, color lipgloss.Color, width int) ShareBar {
	p := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return ShareBar{progress: p, label: label, color: color}
}

// Update steps the animation.
func (b ShareBar) Update(msg tea.Msg) (ShareBar, tea.Cmd) {
	if _, ok := msg.(AnimationTickMsg); !ok || !b.animating {
		return b, nil
	}

	diff := b.target - b.current
	if diff == 0 {
		b.animating = false
		return b, nil
	}

	step := max(math.Abs(diff)/10, 0.5)
	if math.Abs(diff) <= step {
		b.current = b.target
	} else if diff > 0 {
		b.current += step
	} else {
		b.current -= step
	}
	return b, animationTick()
}

// SetPercent sets the target share in percent and starts the animation.
func (b *ShareBar) SetPercent(percent float64) tea.Cmd {
	b.target = min(max(percent, 0), 100)
	if b.animating || b.current == b.target {
		return nil
	}
	b.animating = true
	return animationTick()
}

// Percent returns the value currently drawn.
func (b ShareBar) Percent() float64 {
	return b.current
}

// Target returns the value the bar is easing towards.
func (b ShareBar) Target() float64 {
	return b.target
}

// SetWidth sets the progress bar width.
func (b *ShareBar) SetWidth(width int) {
	b.progress.Width = width
}

// View renders the label, the bar, the share and an amount.
func (b ShareBar) View(amount string, width int) string {
	b.progress.Width = max(width-36, 10)

	labelStr := styles.ProgressLabelStyle.Width(14).Render(b.label)
	percentStr := styles.GetShareStyle(b.current).
		Width(7).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f%%", b.current))
	amountStr := styles.MoneyStyle.Width(14).Align(lipgloss.Right).Render(amount)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStr, b.progress.ViewAs(b.current/100), percentStr, amountStr)
}

// RenderGradientBar draws percent of width as filled cells whose color runs
// from green at the left edge to red at the right, so a fuller bar ends
// hotter.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := min(max(int(float64(width)*percent/100), 0), width)
	empty := lipgloss.NewStyle().Foreground(styles.Subtle).Render("░")

	var b strings.Builder
	for i := range width {
		if i >= filled {
			b.WriteString(empty)
			continue
		}
		c := blend(gradientFrom, gradientTo, float64(i)/float64(max(width-1, 1)))
		b.WriteString(lipgloss.NewStyle().Foreground(c).Render("█"))
	}
	return b.String()
}

// LoadingBar draws a highlight sweeping back and forth while an estimate is
// being computed. frame advances the sweep.
func LoadingBar(width, frame int, accent lipgloss.Color) string {
	const period = 120
	width = max(width, 10)

	// Triangle wave over the period, smoothstepped so the sweep slows at
	// both ends.
	phase := float64(frame%period) / period
	x := 1 - math.Abs(2*phase-1)
	head := int(x * x * (3 - 2*x) * float64(width))

	near := lipgloss.NewStyle().Foreground(accent).Render("▓")
	mid := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒")
	far := lipgloss.NewStyle().Foreground(styles.BgLight).Render("░")

	var b strings.Builder
	for i := range width {
		switch d := math.Abs(float64(head - i)); {
		case d < 3:
			b.WriteString(near)
		case d < 5:
			b.WriteString(mid)
		default:
			b.WriteString(far)
		}
	}
	return b.String()
}

// blend mixes two hex colors in CIE L*a*b* space. t=0 gives from.
func blend(from, to string, t float64) lipgloss.Color {
	a, errA := colorful.Hex(from)
	b, errB := colorful.Hex(to)
	if errA != nil || errB != nil {
		return styles.Subtle
	}
	return lipgloss.Color(a.BlendLab(b, t).Clamped().Hex())
}
