package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	"topcharger/pkg/domain"
)

// TestContext is the slice of the e2e context these steps need.
type TestContext interface {
	Request(method, path, wallet string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(field string) (any, error)
	MatchKey() string
	SetMatchKey(key string)
}

// RegisterSteps registers user, charger and match steps. People are named
// in scenarios; their identity hash is derived from the name.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &marketplaceSteps{tc: tc}

	ctx.Step(`^(host|driver) "([^"]*)" is registered by "([^"]*)"$`, steps.registered)
	ctx.Step(`^"([^"]*)" registers (host|driver) "([^"]*)"$`, steps.register)
	ctx.Step(`^an anonymous caller registers (host|driver) "([^"]*)"$`, steps.registerAnonymously)

	ctx.Step(`^"([^"]*)" has listed charger (\d+) for "([^"]*)" with (\d+) kW (ac|dc) at price (\d+) in "([^"]*)"$`, steps.listed)
	ctx.Step(`^"([^"]*)" lists charger (\d+) for "([^"]*)" with (\d+) kW (ac|dc) at price (\d+) in "([^"]*)"$`, steps.list)
	ctx.Step(`^charger (\d+) of "([^"]*)" should be "([^"]*)"$`, steps.chargerStatusShouldBe)

	ctx.Step(`^"([^"]*)" has reserved charger (\d+) of "([^"]*)" for "([^"]*)"$`, steps.reserved)
	ctx.Step(`^"([^"]*)" reserves charger (\d+) of "([^"]*)" for "([^"]*)"$`, steps.reserve)
	ctx.Step(`^"([^"]*)" confirms the match as (correct|incorrect)$`, steps.confirm)
	ctx.Step(`^"([^"]*)" releases charger (\d+) of "([^"]*)"$`, steps.release)
	ctx.Step(`^the match should be "([^"]*)"$`, steps.matchStatusShouldBe)
}

type marketplaceSteps struct {
	tc TestContext
}

func hash(name string) string {
	return domain.HashExternalID(name).String()
}

func chargerPath(id int, owner string) string {
	return fmt.Sprintf("/v1/chargers/%s/%d", hash(owner), id)
}

func (s *marketplaceSteps) expect(status int) error {
	if got := s.tc.LastStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.LastBody())
	}
	return nil
}

func (s *marketplaceSteps) register(_ context.Context, wallet, role, name string) error {
	return s.tc.Request(http.MethodPost, "/v1/users", wallet, map[string]any{
		"identity_hash": hash(name),
		"role":          role,
	})
}

func (s *marketplaceSteps) registered(ctx context.Context, role, name, wallet string) error {
	if err := s.register(ctx, wallet, role, name); err != nil {
		return err
	}
	return s.expect(http.StatusCreated)
}

func (s *marketplaceSteps) registerAnonymously(ctx context.Context, role, name string) error {
	return s.register(ctx, "", role, name)
}

func (s *marketplaceSteps) list(_ context.Context, wallet string, id int, owner string, powerKW int, supply string, price int, location string) error {
	return s.tc.Request(http.MethodPost, "/v1/chargers", wallet, map[string]any{
		"owner":      hash(owner),
		"charger_id": id,
		"power_kw":   powerKW,
		"supply":     supply,
		"price":      price,
		"location":   location,
	})
}

func (s *marketplaceSteps) listed(ctx context.Context, wallet string, id int, owner string, powerKW int, supply string, price int, location string) error {
	if err := s.list(ctx, wallet, id, owner, powerKW, supply, price, location); err != nil {
		return err
	}
	return s.expect(http.StatusCreated)
}

func (s *marketplaceSteps) chargerStatusShouldBe(_ context.Context, id int, owner, want string) error {
	if err := s.tc.Request(http.MethodGet, chargerPath(id, owner), "", nil); err != nil {
		return err
	}
	if err := s.expect(http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("status")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected charger %s, got %v", want, got)
	}
	return nil
}

func (s *marketplaceSteps) reserve(_ context.Context, wallet string, id int, owner, driver string) error {
	if err := s.tc.Request(http.MethodPost, chargerPath(id, owner)+"/reserve", wallet, map[string]any{
		"driver": hash(driver),
	}); err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusCreated {
		key, err := s.tc.ResponseField("match_key")
		if err != nil {
			return err
		}
		s.tc.SetMatchKey(fmt.Sprint(key))
	}
	return nil
}

func (s *marketplaceSteps) reserved(ctx context.Context, wallet string, id int, owner, driver string) error {
	if err := s.reserve(ctx, wallet, id, owner, driver); err != nil {
		return err
	}
	return s.expect(http.StatusCreated)
}

func (s *marketplaceSteps) confirm(_ context.Context, wallet, verdict string) error {
	if s.tc.MatchKey() == "" {
		return fmt.Errorf("no match has been reserved")
	}
	return s.tc.Request(http.MethodPost, "/v1/matches/"+s.tc.MatchKey()+"/confirm", wallet, map[string]any{
		"was_correct": verdict == "correct",
	})
}

func (s *marketplaceSteps) release(_ context.Context, wallet string, id int, owner string) error {
	return s.tc.Request(http.MethodPost, chargerPath(id, owner)+"/release", wallet, nil)
}

func (s *marketplaceSteps) matchStatusShouldBe(_ context.Context, want string) error {
	if err := s.tc.Request(http.MethodGet, "/v1/matches/"+s.tc.MatchKey(), "", nil); err != nil {
		return err
	}
	if err := s.expect(http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("status")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected match %s, got %v", want, got)
	}
	return nil
}
