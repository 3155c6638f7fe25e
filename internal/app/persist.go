package app

import (
	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/catalog"
	"github.com/ayusman/chainfit/internal/placement"
	"github.com/ayusman/chainfit/internal/store"
)

// Restore applies the saved active chain and returns the saved placement
// parameters. Missing or stale settings fall back to the defaults.
func Restore(settings *store.SettingsRepository, selector *catalog.Selector, log *logrus.Logger) placement.Parameters {
	if id, err := settings.ActiveChain(); err == nil {
		if _, err := selector.SelectID(id); err != nil {
			log.WithField("chain_id", id).Debug("Saved chain no longer present")
		}
	}

	params, err := settings.Parameters()
	if err != nil {
		log.WithError(err).Warn("Failed to load saved parameters, using defaults")
		return placement.DefaultParameters()
	}
	return params
}

// Persist saves selection and parameter changes as they happen. onChain,
// if set, is called after the active chain is saved.
func Persist(settings *store.SettingsRepository, selector *catalog.Selector, controls *placement.Controls, log *logrus.Logger, onChain func(a *catalog.Asset)) {
	selector.OnChange(func(index int, a *catalog.Asset) {
		if a == nil {
			return
		}
		if err := settings.SetActiveChain(a.ID); err != nil {
			log.WithError(err).Warn("Failed to save active chain")
		}
		if onChain != nil {
			onChain(a)
		}
		log.WithFields(logrus.Fields{"index": index, "chain": a.Name}).Debug("Active chain changed")
	})

	controls.OnChange(func(p placement.Parameters) {
		if err := settings.SaveParameters(p); err != nil {
			log.WithError(err).Warn("Failed to save parameters")
		}
	})
}
