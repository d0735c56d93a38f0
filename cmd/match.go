package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/logger"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

var degreeLevels = []string{"Bachelors", "Masters", "PhD", "MBA"}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Generate scholarship matches for a single profile",
	Long: `Generate scholarship matches for a single profile without starting the API.
The profile is read from --profile or entered interactively.`,
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("profile", "f", "", "a JSON file with the student profile")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	appLogger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		appLogger.Fatal("getting a config", zap.Error(err))
	}

	var profile scholarship.Profile
	if path := cmd.Flag("profile").Value.String(); path != "" {
		profile, err = readProfile(path)
	} else {
		profile, err = promptProfile()
	}
	if err != nil {
		appLogger.Fatal("reading the profile", zap.Error(err))
	}

	matcher, err := newMatcher(ctx, &config.Gemini, appLogger)
	if err != nil {
		appLogger.Fatal("building the matcher", zap.Error(err))
	}

	result := matcher.Generate(ctx, profile)
	if scholarship.IsFallback(result) {
		appLogger.Info("no direct matches found, consultation recommended")
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

func readProfile(path string) (scholarship.Profile, error) {
	var profile scholarship.Profile

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("reading profile file: %w", err)
	}

	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("decoding profile file %q: %w", path, err)
	}

	if len(profile.TargetCountries) == 0 || strings.TrimSpace(profile.Major) == "" {
		return profile, errors.New("profile needs target_countries and major")
	}

	return profile, nil
}

func promptProfile() (scholarship.Profile, error) {
	var profile scholarship.Profile

	_, degree, err := (&promptui.Select{Label: "Target degree", Items: degreeLevels}).Run()
	if err != nil {
		return profile, err
	}
	profile.DegreeLevel = degree

	gpa, err := (&promptui.Prompt{Label: "GPA", Validate: validateNumber}).Run()
	if err != nil {
		return profile, err
	}
	profile.GPA, _ = strconv.ParseFloat(strings.TrimSpace(gpa), 64)

	profile.GPAScale, err = (&promptui.Prompt{Label: "GPA scale", Default: "4.0"}).Run()
	if err != nil {
		return profile, err
	}

	countries, err := (&promptui.Prompt{Label: "Target countries (comma separated)", Validate: validateRequired}).Run()
	if err != nil {
		return profile, err
	}
	for _, country := range strings.Split(countries, ",") {
		if country = strings.TrimSpace(country); country != "" {
			profile.TargetCountries = append(profile.TargetCountries, country)
		}
	}

	profile.Major, err = (&promptui.Prompt{Label: "Major", Validate: validateRequired}).Run()
	if err != nil {
		return profile, err
	}

	years, err := (&promptui.Prompt{Label: "Years of work experience", Default: "0", Validate: validateYears}).Run()
	if err != nil {
		return profile, err
	}
	profile.WorkExperienceYears, _ = strconv.Atoi(strings.TrimSpace(years))

	profile.ProfileHighlight, err = (&promptui.Prompt{Label: "Profile highlight", Validate: validateRequired}).Run()
	if err != nil {
		return profile, err
	}

	return profile, nil
}

func validateRequired(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

func validateNumber(input string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || v < 0 {
		return errors.New("enter a non-negative number")
	}
	return nil
}

func validateYears(input string) error {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 0 {
		return errors.New("enter a whole number of years")
	}
	return nil
}
