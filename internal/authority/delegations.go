package authority

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"topcharger/pkg/domain"
	platformstrings "topcharger/pkg/platform/strings"
)

// StaticDelegations is an immutable delegation table.
//
// Services act for every principal (the backend signer that submits on
// behalf of users). Delegates maps a principal to the actors allowed to act
// for it.
type StaticDelegations struct {
	services  map[domain.Authority]struct{}
	delegates map[domain.Authority]map[domain.Authority]struct{}
}

// delegationFile is the YAML layout:
//
//	services:
//	  - backend-signer
//	delegates:
//	  <principal>: [<actor>, ...]
type delegationFile struct {
	Services  []string            `yaml:"services"`
	Delegates map[string][]string `yaml:"delegates"`
}

// NewStaticDelegations builds a table from already-validated authorities.
func NewStaticDelegations(services []domain.Authority, delegates map[domain.Authority][]domain.Authority) *StaticDelegations {
	d := &StaticDelegations{
		services:  make(map[domain.Authority]struct{}, len(services)),
		delegates: make(map[domain.Authority]map[domain.Authority]struct{}, len(delegates)),
	}
	for _, s := range services {
		d.services[s] = struct{}{}
	}
	for principal, actors := range delegates {
		set := make(map[domain.Authority]struct{}, len(actors))
		for _, a := range actors {
			set[a] = struct{}{}
		}
		d.delegates[principal] = set
	}
	return d
}

// ParseDelegations decodes the YAML delegation table.
func ParseDelegations(data []byte) (*StaticDelegations, error) {
	var file delegationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode delegations: %w", err)
	}

	services := make([]domain.Authority, 0, len(file.Services))
	for _, raw := range platformstrings.DedupeAndTrim(file.Services) {
		a, err := domain.ParseAuthority(raw)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", raw, err)
		}
		services = append(services, a)
	}

	delegates := make(map[domain.Authority][]domain.Authority, len(file.Delegates))
	for rawPrincipal, rawActors := range file.Delegates {
		principal, err := domain.ParseAuthority(rawPrincipal)
		if err != nil {
			return nil, fmt.Errorf("principal %q: %w", rawPrincipal, err)
		}
		for _, rawActor := range platformstrings.DedupeAndTrim(rawActors) {
			actor, err := domain.ParseAuthority(rawActor)
			if err != nil {
				return nil, fmt.Errorf("delegate %q of %q: %w", rawActor, rawPrincipal, err)
			}
			delegates[principal] = append(delegates[principal], actor)
		}
	}
	return NewStaticDelegations(services, delegates), nil
}

// LoadDelegations reads a delegation table from path.
func LoadDelegations(path string) (*StaticDelegations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read delegations file: %w", err)
	}
	return ParseDelegations(data)
}

func (d *StaticDelegations) Permits(_ context.Context, actor, principal domain.Authority) bool {
	if _, ok := d.services[actor]; ok {
		return true
	}
	_, ok := d.delegates[principal][actor]
	return ok
}
