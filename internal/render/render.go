package render

import (
	"fmt"
	"strings"

	"cardforge/internal/database"
	"cardforge/internal/fault"
	"cardforge/internal/model"
)

// Renderer assembles markdown card sheets from persisted pipeline output.
type Renderer struct {
	db *database.DB
}

// New creates a renderer backed by db.
func New(db *database.DB) *Renderer {
	return &Renderer{db: db}
}

// CardSheet renders the full markdown sheet for one subject. The subject must
// have completed a pipeline run; missing stats or card content yields a
// not_found fault rather than a partial sheet.
func (r *Renderer) CardSheet(externalID string) (string, error) {
	profile, err := r.db.FindProfileByExternalID(externalID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fault.New(fault.NotFound, "no profile for subject %s", externalID)
	}

	card, err := r.db.GetGeneratedContent(externalID)
	if err != nil {
		return "", err
	}
	if card == nil {
		return "", fault.New(fault.NotFound, "no card generated for @%s yet", profile.Handle)
	}

	derived, err := r.db.GetDerivedStats(externalID)
	if err != nil {
		return "", err
	}
	if derived == nil {
		return "", fault.New(fault.NotFound, "no stats computed for @%s yet", profile.Handle)
	}

	snapshots, err := r.db.GetSnapshots(externalID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeHeader(&b, profile)
	writeStatBlock(&b, derived.Stats)
	writeTraits(&b, card.Content)
	writeBios(&b, card.Content)
	writeHistory(&b, snapshots)
	return b.String(), nil
}

func writeHeader(b *strings.Builder, p *database.StoredProfile) {
	name := p.DisplayName
	if name == "" {
		name = p.Handle
	}
	fmt.Fprintf(b, "# %s (@%s)\n\n", name, p.Handle)
	if p.AvatarFullURL != "" {
		fmt.Fprintf(b, "![avatar](%s)\n\n", p.AvatarFullURL)
	}

	var badges []string
	if p.Verified {
		badges = append(badges, "verified")
	}
	if p.Location != "" {
		badges = append(badges, p.Location)
	}
	if len(badges) > 0 {
		fmt.Fprintf(b, "*%s*\n\n", strings.Join(badges, " | "))
	}
	fmt.Fprintf(b, "**%d** followers | **%d** following | **%d** posts\n\n",
		p.Followers, p.Following, p.PostCount)
}

func writeStatBlock(b *strings.Builder, s model.DerivedStats) {
	b.WriteString("## Stats\n\n")
	b.WriteString("| Attribute | Score |\n|---|---|\n")
	fmt.Fprintf(b, "| Charisma | %d |\n", s.Charisma)
	fmt.Fprintf(b, "| Influence | %d |\n", s.Influence)
	fmt.Fprintf(b, "| Energy | %d |\n\n", s.Energy)
}

func writeTraits(b *strings.Builder, c model.GeneratedContent) {
	b.WriteString("## Traits\n\n")
	fmt.Fprintf(b, "- **Buff: %s** - %s\n", c.Buff, c.BuffDescription)
	fmt.Fprintf(b, "- **Weakness: %s** - %s\n", c.Weakness, c.WeaknessDescription)
	fmt.Fprintf(b, "- **Vibe: %s** - %s\n", c.Vibe, c.VibeDescription)
	fmt.Fprintf(b, "- **Special Move: %s** - %s\n\n", c.SpecialMove, c.SpecialMoveDescription)
	fmt.Fprintf(b, "> %s\n\n", c.FlavorText)

	if len(c.Tags) > 0 {
		var tags []string
		for _, tag := range c.Tags {
			tags = append(tags, "`"+tag+"`")
		}
		b.WriteString(strings.Join(tags, " ") + "\n\n")
	}
}

func writeBios(b *strings.Builder, c model.GeneratedContent) {
	b.WriteString("## Bio\n\n")
	b.WriteString(c.ShortBio + "\n\n")
	b.WriteString("### The Long Version\n\n")
	b.WriteString(c.LongBio + "\n\n")
}

func writeHistory(b *strings.Builder, snapshots []model.DailySnapshot) {
	if len(snapshots) == 0 {
		return
	}
	b.WriteString("## History\n\n")
	b.WriteString("| Date | Followers | Following | Posts |\n|---|---|---|---|\n")
	for _, s := range snapshots {
		fmt.Fprintf(b, "| %s | %d | %d | %d |\n", s.Date, s.Followers, s.Following, s.PostCount)
	}
	b.WriteString("\n")
}
