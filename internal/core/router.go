package core

import (
	"strings"

	"github.com/harshit-mishr/sky-scrapper/internal/config"
)

// Router decides which registered adapters serve a search under the
// configured mode.
type Router struct {
	cfg      *config.Config
	adapters []FlightAdapter
}

func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg}
}

func (r *Router) Register(a FlightAdapter) {
	r.adapters = append(r.adapters, a)
}

func (r *Router) Mode() config.Mode {
	return r.cfg.Mode
}

func (r *Router) ActiveAdapters() []FlightAdapter {
	var out []FlightAdapter
	for _, a := range r.adapters {
		if r.shouldUse(a.Name()) {
			out = append(out, a)
		}
	}
	return out
}

// AirportAdapters returns the active adapters that can resolve airport
// keywords.
func (r *Router) AirportAdapters() []FlightAdapter {
	var out []FlightAdapter
	for _, a := range r.ActiveAdapters() {
		if hasCapability(a, CapAirportsSearch) {
			out = append(out, a)
		}
	}
	return out
}

func (r *Router) shouldUse(name string) bool {
	if pc, ok := r.cfg.Providers[name]; ok && !pc.Enabled {
		return false
	}
	switch r.cfg.Mode {
	case config.ModeMock:
		return isMockProvider(name)
	case config.ModeLive:
		return !isMockProvider(name)
	case config.ModeHybrid:
		if !isMockProvider(name) {
			return r.cfg.ProviderHasCredentials(name)
		}
		return r.noLiveAlternative()
	}
	return false
}

func (r *Router) noLiveAlternative() bool {
	for _, a := range r.adapters {
		if !isMockProvider(a.Name()) && r.cfg.ProviderHasCredentials(a.Name()) {
			return false
		}
	}
	return true
}

func isMockProvider(name string) bool {
	return strings.HasPrefix(name, "mock_")
}

func hasCapability(a FlightAdapter, c Capability) bool {
	for _, got := range a.Capabilities() {
		if got == c {
			return true
		}
	}
	return false
}

func (r *Router) ProviderInfos() []ProviderInfo {
	var infos []ProviderInfo

	for _, a := range r.adapters {
		info := ProviderInfo{
			Name:         a.Name(),
			Capabilities: a.Capabilities(),
			Tier:         a.Tier(),
		}
		if avail, reason := a.Available(); avail {
			info.Status = "active"
		} else {
			info.Status = "no_credentials"
			info.Reason = reason
		}
		switch {
		case r.cfg.Mode == config.ModeMock && !isMockProvider(a.Name()):
			info.Status = "inactive"
			info.Reason = "mode is mock"
		case r.cfg.Mode == config.ModeLive && isMockProvider(a.Name()):
			info.Status = "inactive"
			info.Reason = "mode is live"
		case r.cfg.Mode == config.ModeHybrid && isMockProvider(a.Name()) && !r.noLiveAlternative():
			info.Status = "standby"
			info.Reason = "a live provider has credentials"
		}
		infos = append(infos, info)
	}

	return infos
}
