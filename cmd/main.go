package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
	"restaurant-pos/internal/services/checkout"
	"restaurant-pos/internal/services/kitchen"
	"restaurant-pos/internal/services/notification"
	backend "restaurant-pos/internal/services/pos"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/workflows"
)

func main() {
	var (
		mode              = flag.String("mode", "", "Service mode (pos-api, kitchen-worker, notification-subscriber, checkout-worker, checkout, floor, migrate, create-manager)")
		configFile        = flag.String("config", "config.yaml", "Path to the configuration file")
		port              = flag.Int("port", 0, "HTTP port (overrides server.port)")
		workerName        = flag.String("worker-name", "", "Station name (required for kitchen-worker mode)")
		orderTypes        = flag.String("order-types", "", "Comma-separated order types for station specialization")
		heartbeatInterval = flag.Int("heartbeat-interval", 30, "Heartbeat interval in seconds")
		prefetch          = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
		ticketFile        = flag.String("file", "", "Ticket file to ring up (checkout mode)")
		name              = flag.String("name", "", "Staff member name (create-manager mode)")
		pin               = flag.String("pin", "", "Manager PIN (create-manager mode, and the demo manager in memory mode)")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch *mode {
	case "pos-api":
		runErr = runPOSAPI(ctx, cfg, log, *pin)
	case "kitchen-worker":
		if *workerName == "" {
			log.Error("validation_failed", "worker-name is required for kitchen-worker mode", requestID, nil, nil)
			os.Exit(1)
		}
		runErr = runKitchenWorker(ctx, cfg, log, *workerName, *orderTypes, *heartbeatInterval, *prefetch)
	case "notification-subscriber":
		runErr = runNotificationSubscriber(ctx, cfg, log)
	case "checkout-worker":
		runErr = runCheckoutWorker(ctx, cfg, log)
	case "checkout":
		if *ticketFile == "" {
			log.Error("validation_failed", "file is required for checkout mode", requestID, nil, nil)
			os.Exit(1)
		}
		runErr = runCheckout(ctx, cfg, log, *ticketFile)
	case "floor":
		runErr = runFloor(ctx, cfg)
	case "migrate":
		runErr = runMigrate(ctx, cfg, log)
	case "create-manager":
		runErr = runCreateManager(ctx, cfg, log, *name, *pin)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, runErr, nil)
		os.Exit(1)
	}
	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// openStore connects the configured store. Memory mode seeds the demo
// floor plan and, when a PIN is given, a demo manager.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate bool, demoPIN string) (store.Store, func(), error) {
	requestID := logger.GenerateRequestID()

	if cfg.Server.Store == config.StoreMemory {
		mem := store.NewMemoryStore()
		var staff []models.StaffMember
		if demoPIN != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(demoPIN), bcrypt.DefaultCost)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to hash demo PIN: %w", err)
			}
			staff = append(staff, models.StaffMember{Name: "Demo Manager", Role: models.RoleManager, PINHash: string(hash), Active: true})
		}
		if err := store.SeedDemo(ctx, mem, staff...); err != nil {
			return nil, nil, err
		}
		log.Info("store_ready", "Using in-memory store with demo data", requestID, map[string]interface{}{
			"demo_manager": demoPIN != "",
		})
		return mem, func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if migrate {
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return store.NewPostgresStore(db), db.Close, nil
}

// openBroker connects to RabbitMQ; without a configured host events are dropped
func openBroker(ctx context.Context, cfg *config.Config, log *logger.Logger) (*messaging.Connection, messaging.EventPublisher, error) {
	if !cfg.MessagingEnabled() {
		log.Warn("messaging_disabled", "RabbitMQ host not configured, events are dropped", "", nil)
		return nil, messaging.NopPublisher{}, nil
	}
	conn, err := messaging.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize messaging: %w", err)
	}
	log.Info("rabbitmq_connected", "Connected to RabbitMQ", "", nil)
	return conn, messaging.NewPublisher(conn, log), nil
}

// runPOSAPI serves the remote procedures over HTTP
func runPOSAPI(ctx context.Context, cfg *config.Config, log *logger.Logger, demoPIN string) error {
	requestID := logger.GenerateRequestID()

	st, closeStore, err := openStore(ctx, cfg, log, true, demoPIN)
	if err != nil {
		return err
	}
	defer closeStore()

	conn, publisher, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	svc := backend.NewService(st, publisher, log, domain.NewPolicy(cfg.POS))
	rpcServer := rpc.NewServer(svc, log, cfg.Server.RequestTimeout, func(ctx context.Context) bool {
		return svc.Health(ctx) == nil
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           rpcServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("POS API started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":  cfg.Server.Port,
			"store": cfg.Server.Store,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runKitchenWorker runs one kitchen station
func runKitchenWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, workerName, orderTypes string, heartbeatInterval, prefetch int) error {
	if !cfg.MessagingEnabled() {
		return errors.New("kitchen worker requires rabbitmq.host")
	}
	if cfg.Server.Store != config.StorePostgres {
		return errors.New("kitchen worker requires the postgres store")
	}

	st, closeStore, err := openStore(ctx, cfg, log, false, "")
	if err != nil {
		return err
	}
	defer closeStore()

	conn, publisher, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}

	types := models.ParseOrderTypes(orderTypes)
	consumer := messaging.NewConsumer(conn, log, messaging.QueueForStation(types), workerName, prefetch)
	worker := kitchen.NewWorker(workerName, types, time.Duration(heartbeatInterval)*time.Second, prefetch,
		st, consumer, publisher, log)
	return worker.Start(ctx)
}

// runNotificationSubscriber prints status updates and forwards them to Telegram
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if !cfg.MessagingEnabled() {
		return errors.New("notification subscriber requires rabbitmq.host")
	}
	conn, _, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}

	sinks := []notification.Sink{notification.ConsoleSink{Out: os.Stdout}}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notification.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return err
		}
		sinks = append(sinks, tg)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-subscriber", 10)
	return notification.NewSubscriber(consumer, log, sinks...).Start(ctx)
}

func dialTemporal(cfg *config.Config, log *logger.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(log.Slog()),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create temporal client: %w", err)
	}
	return c, nil
}

// runCheckoutWorker hosts the durable checkout workflow
func runCheckoutWorker(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	c, err := dialTemporal(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	w := workflows.NewWorker(c, cfg.Temporal.TaskQueue, rpc.NewClient(cfg.Checkout.APIURL, nil))
	if err := w.Start(); err != nil {
		return fmt.Errorf("unable to start worker: %w", err)
	}
	log.Info("service_started", "Checkout worker started", "", map[string]interface{}{
		"task_queue": cfg.Temporal.TaskQueue,
		"api_url":    cfg.Checkout.APIURL,
	})

	<-ctx.Done()
	w.Stop()
	return nil
}

// runCheckout rings up one ticket file at a terminal
func runCheckout(ctx context.Context, cfg *config.Config, log *logger.Logger, filename string) error {
	tk, err := checkout.LoadTicket(filename)
	if err != nil {
		return err
	}

	api := rpc.NewClient(cfg.Checkout.APIURL, nil)
	var submitter checkout.Submitter
	switch cfg.Checkout.Strategy {
	case config.StrategyAtomic:
		submitter = checkout.NewAtomicSubmitter(api)
	case config.StrategyWorkflow:
		c, err := dialTemporal(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()
		submitter = workflows.NewWorkflowSubmitter(c, cfg.Temporal.TaskQueue, cfg.Checkout.Compensate, log)
	default:
		submitter = checkout.NewSagaSubmitter(api, cfg.Checkout.Compensate, cfg.Checkout.CompensationTimeout, log)
	}

	term := checkout.NewTerminal(cfg.Checkout.TerminalID, api, submitter, domain.NewPolicy(cfg.POS), log)
	result, err := checkout.Play(ctx, term, tk)
	if err != nil {
		fmt.Fprintln(os.Stderr, checkout.UserMessage(err))
		return err
	}

	printReceipt(result)
	return nil
}

func printReceipt(result *models.CheckoutResult) {
	o := result.Order
	fmt.Printf("Order %s (%s) %s\n", o.Number, o.Type, o.Status)
	for _, it := range o.Items {
		fmt.Printf("  %2d x %-24s %8s\n", it.Quantity, it.Name, it.UnitPrice.StringFixed(2))
	}
	fmt.Printf("  subtotal %s  tax %s  service %s  discount -%s  tip %s\n",
		o.Totals.Subtotal.StringFixed(2), o.Totals.Tax.StringFixed(2), o.Totals.ServiceCharge.StringFixed(2),
		o.Totals.DiscountAmount.StringFixed(2), o.Totals.TipAmount.StringFixed(2))
	fmt.Printf("  TOTAL %s  paid by %s (%s)\n", o.Totals.Total.StringFixed(2), o.PaymentMethod, o.PaymentStatus)
	if bill := result.SplitBill; bill != nil {
		for _, p := range bill.Parts {
			state := "due"
			if p.Paid {
				state = "paid " + string(p.Method)
			}
			fmt.Printf("  part %d: %s %s\n", p.PartNumber, p.Amount.StringFixed(2), state)
		}
	}
}

// runFloor prints table occupancy on every refresh until interrupted
func runFloor(ctx context.Context, cfg *config.Config) error {
	api := rpc.NewClient(cfg.Checkout.APIURL, nil)
	err := checkout.WatchTables(ctx, api, cfg.Checkout.PollInterval, func(v checkout.TableView, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
			return
		}
		line := make([]string, 0, len(v.Tables))
		for _, t := range v.Tables {
			line = append(line, fmt.Sprintf("%s:%s", t.Name, t.Status))
		}
		fmt.Printf("[%s] %s (%d merges, %d mergeable)\n",
			time.Now().Format("15:04:05"), strings.Join(line, " "), len(v.Merges), len(v.MergeCandidates))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runMigrate applies the embedded migrations and exits
func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	return db.RunMigrations(ctx)
}

// runCreateManager adds a manager who can approve discounts
func runCreateManager(ctx context.Context, cfg *config.Config, log *logger.Logger, name, pin string) error {
	if name == "" {
		return errors.New("--name is required")
	}
	if len(pin) < cfg.POS.PINMinLength {
		return fmt.Errorf("--pin must have at least %d digits", cfg.POS.PINMinLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}

	st, closeStore, err := openStore(ctx, cfg, log, false, "")
	if err != nil {
		return err
	}
	defer closeStore()

	manager := &models.StaffMember{Name: name, Role: models.RoleManager, PINHash: string(hash), Active: true}
	if err := st.InsertStaff(ctx, manager); err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	log.Info("manager_created", fmt.Sprintf("Manager %s created", name), "", map[string]interface{}{
		"staff_id": manager.ID,
	})
	return nil
}
