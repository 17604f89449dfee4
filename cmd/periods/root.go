package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/factory"
	"github.com/warp/period-engine/invoicing"
	"github.com/warp/period-engine/store/memory"
)

// cliState is shared by every subcommand of one invocation.
type cliState struct {
	today   string
	verbose bool
}

func (s *cliState) clock() (calendar.Clock, error) {
	if s.today == "" {
		return calendar.SystemClock{}, nil
	}
	d, err := calendar.ParseDate(s.today)
	if err != nil {
		return nil, fmt.Errorf("invalid --today: %w", err)
	}
	return calendar.FixedClock{Date: d}, nil
}

func (s *cliState) logger() *zap.Logger {
	if !s.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// profileSession loads a profile file into an in-memory service so the
// same rules as the API apply. save writes the profile back in the file's
// format.
type profileSession struct {
	service *invoicing.Service
	factory *factory.ProfileFactory
	path    string
	id      string
}

func (s *cliState) openProfile(ctx context.Context, path string) (*profileSession, error) {
	if path == "" {
		return nil, fmt.Errorf("--profile is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	f := factory.NewProfileFactory()
	var profile billing.Profile
	if isJSON(path) {
		profile, err = f.ParseProfile(string(data))
	} else {
		profile, err = f.ParseProfileYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	clock, err := s.clock()
	if err != nil {
		return nil, err
	}
	service := invoicing.NewService(memory.New(), s.logger(), invoicing.WithClock(clock))
	created, err := service.CreateProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &profileSession{service: service, factory: f, path: path, id: created.ID}, nil
}

func (p *profileSession) save(ctx context.Context) error {
	profile, err := p.service.Profile(ctx, p.id)
	if err != nil {
		return err
	}
	var data []byte
	if isJSON(p.path) {
		data, err = p.factory.MarshalProfile(profile)
	} else {
		data, err = p.factory.MarshalProfileYAML(profile)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// target resolves --date, then --target, then today.
func (p *profileSession) target(ctx context.Context, dateText, targetText string) (calendar.Date, error) {
	var t invoicing.Target
	switch {
	case dateText != "":
		d, err := calendar.ParseDate(dateText)
		if err != nil {
			return calendar.Date{}, err
		}
		t.Date = &d
	case targetText != "":
		period, err := invoicing.ParseTargetPeriod(targetText)
		if err != nil {
			return calendar.Date{}, err
		}
		profile, err := p.service.Profile(ctx, p.id)
		if err != nil {
			return calendar.Date{}, err
		}
		rel := period.RelativeTimeFor(profile.Cadence())
		t.Relative = &rel
	}
	return p.service.ResolveDate(t)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func newRootCmd() *cobra.Command {
	state := &cliState{}
	root := &cobra.Command{
		Use:   "periods",
		Short: "Billing periods and invoice numbers",
		Long: `periods converts dates to billing periods under a monthly or bi-weekly
cadence, and computes invoice numbers, billable quantities and full invoice
plans from a profile file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&state.today, "today", "", "Pretend today is this date (YYYY-MM-DD)")
	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newNormalizeCmd(),
		newElapsedCmd(),
		newShiftCmd(),
		newLabelCmd(),
		newRelativeCmd(state),
		newNumberCmd(state),
		newQuantityCmd(state),
		newPrepareCmd(state),
		newRecordOffCmd(state),
		newReanchorCmd(state),
		newRecordExpensesCmd(state),
		newValidateCmd(state),
	)
	return root
}
