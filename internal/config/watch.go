package config

import (
	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes and hands the new,
// validated configuration to onChange. Invalid edits are reported through
// onError and the previous configuration stays in effect.
// It is a no-op when no config file was found.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err == nil {
			err = ValidateConfig(cfg)
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
	return true
}
