package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

const settingsCachePrefix = "settings:"

// SettingsService reads site settings from redis first, then the database, then env defaults.
type SettingsService struct {
	repo     repository.SettingRepo
	kv       KV
	ttl      time.Duration
	defaults map[string]string
	log      *zap.Logger
}

func NewSettingsService(repo repository.SettingRepo, kv KV, ttl time.Duration, defaults map[string]string, log *zap.Logger) *SettingsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		if strings.TrimSpace(v) != "" {
			d[k] = v
		}
	}
	return &SettingsService{repo: repo, kv: kv, ttl: ttl, defaults: d, log: log}
}

func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	if s.kv != nil {
		v, err := s.kv.Get(ctx, settingsCachePrefix+key)
		switch {
		case err == nil:
			return v, nil
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	row, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if row == nil {
		if v, ok := s.defaults[key]; ok {
			return v, nil
		}
		return "", ErrSettingNotFound
	}

	if s.kv != nil {
		if err := s.kv.Set(ctx, settingsCachePrefix+key, row.Value, s.ttl); err != nil {
			s.log.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return row.Value, nil
}

func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	if s.kv != nil {
		if err := s.kv.Del(ctx, settingsCachePrefix+key); err != nil {
			s.log.Warn("settings cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
