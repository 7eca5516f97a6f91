package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NotificationConfig controls which portal events fan out to Slack. It is
// loaded from notifications.yml and hot-reloaded on file change so operators
// can mute noisy events without a restart.
type NotificationConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Channel           string `mapstructure:"channel"`
	NewPromotion      bool   `mapstructure:"newPromotion"`
	FeaturedPromotion bool   `mapstructure:"featuredPromotion"`
	PromotionPending  bool   `mapstructure:"promotionPending"`
	NewSponsor        bool   `mapstructure:"newSponsor"`
	BlogPost          bool   `mapstructure:"blogPost"`
}

func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		Enabled:           true,
		NewPromotion:      true,
		FeaturedPromotion: true,
		PromotionPending:  true,
		NewSponsor:        true,
		BlogPost:          false,
	}
}

type NotificationConfigHolder struct {
	current atomic.Value // holds NotificationConfig
}

func NewNotificationConfigHolder() (*NotificationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("notifications")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/sponsorhub/config") // Volume-mounted config
	v.AddConfigPath("/etc/sponsorhub")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("SPONSORHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNotificationConfig()
	v.SetDefault("notifications.enabled", defaults.Enabled)
	v.SetDefault("notifications.newPromotion", defaults.NewPromotion)
	v.SetDefault("notifications.featuredPromotion", defaults.FeaturedPromotion)
	v.SetDefault("notifications.promotionPending", defaults.PromotionPending)
	v.SetDefault("notifications.newSponsor", defaults.NewSponsor)
	v.SetDefault("notifications.blogPost", defaults.BlogPost)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg NotificationConfig
	if err := v.UnmarshalKey("notifications", &cfg); err != nil {
		return nil, err
	}

	holder := &NotificationConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotificationConfig
		if err := v.UnmarshalKey("notifications", &updated); err != nil {
			log.Printf("[notification-config] reload failed: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[notification-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticNotificationConfigHolder wraps a fixed config with no file watch.
func NewStaticNotificationConfigHolder(cfg NotificationConfig) *NotificationConfigHolder {
	holder := &NotificationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *NotificationConfigHolder) Get() NotificationConfig {
	return h.current.Load().(NotificationConfig)
}
