package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appLog "groovecal/internal/log"
	"groovecal/internal/model"
	"groovecal/internal/store"
	"groovecal/internal/validate"
)

var seedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Load users and habits from a YAML file",
	Long: `Load users and their habits from a YAML seed file.

Users whose email already exists are skipped together with their habits.

Example file:
  users:
    - email: ada@example.com
      name: Ada Lovelace
      timezone: Europe/London
      work_hours:
        monday: {start: "09:00", end: "17:00"}
      habits:
        - name: Morning run
          category: activities
          priority: high
          duration: 30
          frequency: {type: daily, interval: 1}
`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Email     string           `yaml:"email"`
	Name      string           `yaml:"name"`
	Timezone  string           `yaml:"timezone"`
	WorkHours *model.WorkHours `yaml:"work_hours"`
	Habits    []seedHabit      `yaml:"habits"`
}

type seedHabit struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Category    model.Category  `yaml:"category"`
	Priority    model.Priority  `yaml:"priority"`
	Duration    int             `yaml:"duration"`
	Frequency   model.Frequency `yaml:"frequency"`
	Tags        []string        `yaml:"tags"`
	// Active defaults to true.
	Active *bool `yaml:"active"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	users, habits, err := seed(cmd.Context(), st, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d habits\n", users, habits)
	return nil
}

// seed validates and stores every user and habit in r. Nothing is written
// if any entry is invalid.
func seed(ctx context.Context, st store.Store, r io.Reader) (int, int, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, fmt.Errorf("decode seed file: %w", err)
	}

	type entry struct {
		user   model.User
		habits []model.Habit
	}
	entries := make([]entry, 0, len(file.Users))

	for i, su := range file.Users {
		e := entry{user: model.User{
			Email:     su.Email,
			Name:      su.Name,
			Timezone:  su.Timezone,
			WorkHours: su.WorkHours,
		}}
		if err := validate.User(&e.user); err != nil {
			return 0, 0, fmt.Errorf("users[%d]: %w", i, err)
		}
		for j, sh := range su.Habits {
			h := model.Habit{
				// Placeholder owner so validation passes; replaced on insert.
				UserID:      "pending",
				Name:        sh.Name,
				Description: sh.Description,
				Category:    sh.Category,
				Priority:    sh.Priority,
				Duration:    sh.Duration,
				Frequency:   sh.Frequency,
				Tags:        sh.Tags,
				Active:      sh.Active == nil || *sh.Active,
			}
			if err := validate.Habit(&h); err != nil {
				return 0, 0, fmt.Errorf("users[%d].habits[%d]: %w", i, j, err)
			}
			e.habits = append(e.habits, h)
		}
		entries = append(entries, e)
	}

	users, habits := 0, 0
	for _, e := range entries {
		u := e.user
		if err := st.CreateUser(ctx, &u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				appLog.Info("seed: user exists, skipping", "email", u.Email)
				continue
			}
			return users, habits, fmt.Errorf("create user %s: %w", u.Email, err)
		}
		users++

		for _, h := range e.habits {
			h.UserID = u.ID
			if err := st.CreateHabit(ctx, &h); err != nil {
				return users, habits, fmt.Errorf("create habit %q for %s: %w", h.Name, u.Email, err)
			}
			habits++
		}
		appLog.Info("seed: user created", "email", u.Email, "user_id", u.ID, "habits", len(e.habits))
	}
	return users, habits, nil
}
