package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-ordering/config"
	"github.com/yeremiapane/restaurant-ordering/kds"
	"github.com/yeremiapane/restaurant-ordering/router"
	"github.com/yeremiapane/restaurant-ordering/services"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.load()
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides PORT")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)
	utils.RegisterValidators()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	hub := kds.NewHub()
	dispatcher, closeNotifiers := buildDispatcher(db, hub, cfg)
	defer closeNotifiers()

	monitor := services.NewChangeMonitor(db, hub, services.NewStatusTracker(), dispatcher)
	monitor.Interval = cfg.PollInterval
	monitor.Start()
	defer monitor.Stop()

	scheduler, err := services.NewMaintenanceScheduler(db)
	if err != nil {
		return err
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	printers := services.NewPrinterRegistry(services.NewPreferenceStore(db), services.OpenDeviceFile)
	defer printers.CloseAll()

	r := router.SetupRouter(router.Deps{
		DB:          db,
		Hub:         hub,
		Printers:    printers,
		Links:       services.NewGuestLinks(cfg.PublicBaseURL),
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildDispatcher registers the notifiers the configuration enables. The
// database and websocket notifiers are always on. E-mail runs behind a queue
// so SMTP latency stays off the change monitor. The returned func flushes the
// queue and releases broker connections.
func buildDispatcher(db *gorm.DB, hub *kds.Hub, cfg *config.Config) (*services.Dispatcher, func()) {
	d := services.NewDispatcher(&services.DBNotifier{DB: db}, &services.HubNotifier{Hub: hub})
	var closers []func()

	if cfg.SMTP.Enabled() {
		mail := services.NewQueuedNotifier(services.NewEmailNotifier(db, cfg.SMTP), 256)
		d.Add(mail)
		closers = append(closers, mail.Close)
		utils.InfoLogger.Printf("E-mail notifications enabled via %s", cfg.SMTP.Host)
	}
	if cfg.AMQPURL != "" {
		n, err := services.DialAMQP(cfg.AMQPURL)
		if err != nil {
			utils.ErrorLogger.Printf("AMQP notifications disabled: %v", err)
		} else {
			d.Add(n)
			closers = append(closers, n.Close)
			utils.InfoLogger.Println("AMQP notifications enabled")
		}
	}
	return d, func() {
		for _, c := range closers {
			c()
		}
	}
}
