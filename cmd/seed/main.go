package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/calendar"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/history"
	"github.com/hackgods/clinic-appointment-booking/internal/logging"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
	"github.com/hackgods/clinic-appointment-booking/internal/slots"
)

type seedOptions struct {
	doctors  int
	patients int
	bookings int
	days     int
	seed     uint64
	out      string
}

// Manifest lists the generated identities so cmd/simulate can reuse them.
type Manifest struct {
	Doctors  []uuid.UUID `json:"doctors"`
	Patients []uuid.UUID `json:"patients"`
}

var reasons = []string{
	"Annual checkup",
	"Follow-up visit",
	"Persistent cough",
	"Back pain",
	"Skin rash",
	"Blood pressure review",
	"Vaccination",
	"Headaches",
	"Lab results discussion",
	"Allergy consultation",
}

func main() {
	var opts seedOptions

	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate availability windows and sample bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	rootCmd.Flags().IntVar(&opts.doctors, "doctors", 20, "Number of doctors to give weekly availability")
	rootCmd.Flags().IntVar(&opts.patients, "patients", 500, "Number of patient identities to generate")
	rootCmd.Flags().IntVar(&opts.bookings, "bookings", 300, "Number of bookings to attempt")
	rootCmd.Flags().IntVar(&opts.days, "days", 14, "Book within this many days from today")
	rootCmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	rootCmd.Flags().StringVar(&opts.out, "out", "seed-manifest.json", "Where to write generated doctor and patient IDs")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(connectCtx, db.PoolOptions{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(connectCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(opts.seed)

	availabilitySvc := availability.NewService(availability.NewPgRepository(pool), logger.Named("availability"), nil)
	appointmentSvc := appointment.NewService(
		appointment.NewPgRepository(pool),
		redisclient.NewRedisLocker(rdb, cfg.LockTTL, redisclient.WithAcquireRetry(cfg.LockRetries, cfg.LockRetryWait)),
		history.NewService(history.NewPgRepository(pool), logger.Named("history")),
		logger.Named("appointment"),
		nil,
	)
	slotGen := slots.NewGenerator(availabilitySvc, appointmentSvc, cfg.SlotDuration, logger.Named("slots"), nil)

	manifest := Manifest{
		Doctors:  make([]uuid.UUID, 0, opts.doctors),
		Patients: make([]uuid.UUID, 0, opts.patients),
	}

	logger.Info("seeding availability", zap.Int("doctors", opts.doctors))
	for i := 0; i < opts.doctors; i++ {
		doctorID := uuid.New()
		if err := seedWindows(ctx, faker, availabilitySvc, doctorID); err != nil {
			return fmt.Errorf("seed windows for %s: %w", doctorID, err)
		}
		manifest.Doctors = append(manifest.Doctors, doctorID)
		logger.Debug("doctor seeded", zap.String("doctor_id", doctorID.String()), zap.String("name", "Dr. "+faker.LastName()))
	}

	for i := 0; i < opts.patients; i++ {
		manifest.Patients = append(manifest.Patients, uuid.New())
	}

	booked, rejected := 0, 0
	today := calendar.DateOf(time.Now())
	for i := 0; i < opts.bookings && len(manifest.Doctors) > 0 && len(manifest.Patients) > 0; i++ {
		doctorID := manifest.Doctors[faker.Number(0, len(manifest.Doctors)-1)]
		date := today.AddDays(faker.Number(0, max(opts.days-1, 0)))

		free, err := slotGen.SlotsFor(ctx, doctorID, date)
		if err != nil {
			return fmt.Errorf("slots for %s on %s: %w", doctorID, date, err)
		}
		if len(free) == 0 {
			continue
		}

		_, err = appointmentSvc.Book(ctx, appointment.BookingRequest{
			DoctorID:  doctorID,
			PatientID: manifest.Patients[faker.Number(0, len(manifest.Patients)-1)],
			Date:      date,
			Time:      free[faker.Number(0, len(free)-1)],
			Reason:    faker.RandomString(reasons),
		})
		switch {
		case err == nil:
			booked++
		case errors.Is(err, appointment.ErrDuplicatePatientBooking),
			errors.Is(err, appointment.ErrSlotCollision),
			errors.Is(err, appointment.ErrSlotBeingBooked):
			rejected++
		default:
			return fmt.Errorf("book: %w", err)
		}
	}

	if err := writeManifest(opts.out, manifest); err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Int("doctors", len(manifest.Doctors)),
		zap.Int("patients", len(manifest.Patients)),
		zap.Int("booked", booked),
		zap.Int("rejected", rejected),
		zap.String("manifest", opts.out),
	)
	return nil
}

// seedWindows gives a doctor a morning block on a few weekdays and an
// afternoon block on some of them.
func seedWindows(ctx context.Context, faker *gofakeit.Faker, svc *availability.Service, doctorID uuid.UUID) error {
	var days []calendar.Weekday
	for _, d := range calendar.Weekdays()[:5] {
		if faker.Number(0, 9) < 7 {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = []calendar.Weekday{calendar.Monday}
	}

	morningStart := calendar.Clock(faker.Number(8, 9), 0)
	if _, err := svc.AddWindows(ctx, doctorID, days, morningStart, calendar.Clock(12, 0)); err != nil {
		return err
	}

	if faker.Bool() {
		afternoonEnd := calendar.Clock(faker.Number(16, 18), 0)
		if _, err := svc.AddWindows(ctx, doctorID, days[:1+faker.Number(0, len(days)-1)], calendar.Clock(13, 0), afternoonEnd); err != nil {
			return err
		}
	}
	return nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
