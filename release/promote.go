package release

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/toolstate-pipeline/interfaces"
)

// ConfirmPhrase is what an operator must type, exactly, for an interactive
// promotion to proceed.
const ConfirmPhrase = "Do it!"

// DeclinedMessage is printed when the confirmation does not match. A declined
// promotion is a successful no-op, not an error.
const DeclinedMessage = "Maybe next time.."

var (
	// ErrNothingToPromote indicates a platform's current channel is empty.
	ErrNothingToPromote = errors.New("nothing to promote")

	// ErrReleaseExists indicates the target release prefix is already
	// populated. Releases are immutable once written.
	ErrReleaseExists = errors.New("release already exists")
)

// Label renders the release label for a point in time as
// <2-digit-year>.<2-digit-ISO-week>. The year component follows the ISO week
// year, so early-January days belonging to the previous year's last week
// label consistently with it.
func Label(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%02d.%02d", year%100, week)
}

// Confirm reads one line from r and reports whether it matches
// ConfirmPhrase. On any other input (including EOF) it writes
// DeclinedMessage to w and reports false.
func Confirm(r io.Reader, w io.Writer) bool {
	fmt.Fprintf(w, "Promote current to a release snapshot? Type %q to proceed: ", ConfirmPhrase)

	scanner := bufio.NewScanner(r)
	if scanner.Scan() && strings.TrimRight(scanner.Text(), "\r\n") == ConfirmPhrase {
		return true
	}

	fmt.Fprintln(w, DeclinedMessage)
	return false
}

// Promoter copies every platform's current channel into a dated release
// channel.
type Promoter struct {
	store interfaces.ArtifactStore
	log   *slog.Logger
}

// NewPromoter creates a promoter over the given artifact store.
func NewPromoter(store interfaces.ArtifactStore, log *slog.Logger) *Promoter {
	return &Promoter{store: store, log: log}
}

// Promote copies all objects under each platform's current prefix to
// release/<label>. Sources are never modified or deleted.
//
// Before any copy it validates that every platform has a non-empty current
// channel and that the release prefix is empty (unless force is set);
// that removes the usual cause of half-promoted releases without pretending
// cross-prefix copies are transactional. A copy failure still aborts
// mid-promotion; the label is deterministic, so a rerun converges.
func (p *Promoter) Promote(ctx context.Context, label string, force bool) error {
	releaseChannel := interfaces.ReleaseChannel(label)

	toCopy := make(map[interfaces.Platform][]interfaces.ArtifactKey)
	for _, platform := range interfaces.Platforms {
		current, err := p.store.List(ctx, platform, interfaces.ChannelCurrent)
		if err != nil {
			return fmt.Errorf("listing %s/current: %w", platform, err)
		}
		if len(current) == 0 {
			return fmt.Errorf("%w: %s/current is empty", ErrNothingToPromote, platform)
		}
		toCopy[platform] = current
	}

	for _, platform := range interfaces.Platforms {
		existing, err := p.store.List(ctx, platform, releaseChannel)
		if err != nil {
			return fmt.Errorf("listing %s/%s: %w", platform, releaseChannel, err)
		}
		if len(existing) > 0 && !force {
			return fmt.Errorf("%w: %s/%s", ErrReleaseExists, platform, releaseChannel)
		}
	}

	for _, platform := range interfaces.Platforms {
		p.log.Info("Promoting platform",
			slog.String("platform", string(platform)),
			slog.String("label", label),
			slog.Int("artifacts", len(toCopy[platform])))

		for _, src := range toCopy[platform] {
			dst := src.WithChannel(releaseChannel)
			if err := p.store.Copy(ctx, src, dst); err != nil {
				return fmt.Errorf("copying %s: %w", src.ObjectKey(), err)
			}
		}
	}

	p.log.Info("Release promoted", slog.String("label", label))
	return nil
}
