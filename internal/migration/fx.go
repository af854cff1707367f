package migration

import (
	"github.com/fitretto/gymbill/internal/config"
	eventdomain "github.com/fitretto/gymbill/internal/event/domain"
	invoicedomain "github.com/fitretto/gymbill/internal/invoice/domain"
	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	sessiondomain "github.com/fitretto/gymbill/internal/session/domain"
	subscriptiondomain "github.com/fitretto/gymbill/internal/subscription/domain"
	userdomain "github.com/fitretto/gymbill/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite deployments rely on gorm's schema sync.
		return conn.AutoMigrate(
			&userdomain.User{},
			&sessiondomain.Session{},
			&ledgerdomain.Entry{},
			&subscriptiondomain.Subscription{},
			&invoicedomain.Invoice{},
			&eventdomain.ProcessedEvent{},
		)
	}),
)
