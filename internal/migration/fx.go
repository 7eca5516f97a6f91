package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	analyticsdomain "github.com/sponsorhub/sponsorhub/internal/analytics/domain"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/config"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/seed"
	slackdomain "github.com/sponsorhub/sponsorhub/internal/slack/domain"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "sqlite" {
			// Local development shortcut; the SQL files are postgres-only.
			if err := conn.AutoMigrate(
				&profiledomain.Profile{},
				&authdomain.Session{},
				&sponsordomain.Sponsor{},
				&sponsordomain.SponsorAdmin{},
				&invitationdomain.Invitation{},
				&promotiondomain.Promotion{},
				&blogdomain.Post{},
				&blogdomain.PostSponsor{},
				&slackdomain.Notification{},
				&analyticsdomain.Event{},
			); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		return seed.EnsureBootstrapAdmin(conn, cfg.BootstrapAdminEmail)
	}),
)
