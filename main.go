package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"listinglens/config"
	"listinglens/database"
	"listinglens/features"
	"listinglens/inspection"
	"listinglens/labels"
	"listinglens/logging"
	"listinglens/reference"
	"listinglens/signalhandler"
	"listinglens/types"
	"listinglens/utils"
	"listinglens/verifier"
)

func main() {
	// Set up proper signal handling
	signalhandler.SetupHandler()

	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	// Get the command (verify or inspect)
	command, hasCommand := args["command"]

	// Setup debug logging if enabled
	debugMode := false
	if _, ok := args["debug"]; ok {
		debugMode = true
		logPath := "listinglens.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
		defer logging.CloseLogger()
	}

	// Load configuration (defaults + optional YAML + environment overrides)
	configPath := "config.yaml"
	if customConfig, ok := args["config"]; ok && customConfig != "" {
		configPath = customConfig
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Check if required arguments are missing
	showUsage := !hasCommand

	if hasCommand && command == "verify" && (args["lat"] == "" || args["lng"] == "" || args["images"] == "") {
		showUsage = true
	}

	if hasCommand && command == "inspect" && args["image"] == "" {
		showUsage = true
	}

	// Show usage if required arguments are missing
	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	switch command {
	case "verify":
		handleVerifyCommand(args, cfg, debugMode)
	case "inspect":
		handleInspectCommand(args, cfg)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

func handleVerifyCommand(args map[string]string, cfg *config.Config, debugMode bool) {
	// Parse and validate the claimed coordinate
	lat, err := utils.ParseCoordinate(args["lat"], -90, 90)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	lng, err := utils.ParseCoordinate(args["lng"], -180, 180)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// Apply flag overrides to the matching policy
	if thresholdStr, ok := args["threshold"]; ok {
		threshold, err := utils.ParsePositiveInt(thresholdStr)
		if err != nil {
			fmt.Printf("Warning: %v, using default (%d)\n", err, cfg.Matching.MinMatches)
		} else {
			cfg.Matching.MinMatches = threshold
		}
	}
	if workersStr, ok := args["workers"]; ok {
		workers, err := utils.ParsePositiveInt(workersStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		} else {
			cfg.Workers = workers
		}
	}
	if cfg.Workers < 1 {
		cfg.Workers = signalhandler.GetOptimalProcs()
	}

	// Set database path for the reference image cache
	dbPath := utils.GetDefaultDatabasePath()
	if customDB, ok := args["database"]; ok && customDB != "" {
		dbPath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		dbPath = customDB
	}

	startTime := time.Now()

	// Initialize the reference image cache
	db, err := database.InitDatabase(dbPath)
	if err != nil {
		log.Fatalf("Error initializing reference cache: %v", err)
	}
	defer db.Close()

	// Wire the acquisition chain: street-view endpoint behind a read-through cache
	acquirer := &reference.CachingAcquirer{
		Source: reference.NewStreetViewAcquirer(
			cfg.Reference.Endpoint,
			cfg.Reference.APIKey,
			cfg.Reference.Size,
			cfg.ReferenceTimeout(),
		),
		Cache: database.NewReferenceCache(db),
	}

	scorer := verifier.NewScorer(acquirer, features.NewExtractor(cfg.Matching.KeypointCap), verifier.Options{
		MinMatches:    cfg.Matching.MinMatches,
		CrossCheck:    cfg.Matching.CrossCheck,
		NoMatchScore:  cfg.Scoring.NoMatchScore,
		Workers:       cfg.Workers,
		DedupDistance: cfg.DedupDistance,
	})

	// Load candidate images; unreadable files are skipped, not fatal
	paths := utils.SplitImageList(args["images"])
	candidates := verifier.LoadCandidates(paths)

	fmt.Printf("Verifying %d candidate image(s) against reference imagery at %.6f,%.6f...\n",
		len(candidates), lat, lng)

	result := scorer.VerifyAuthenticity(context.Background(), candidates, lat, lng)

	printResult(result)

	if debugMode && result.MatchedImage != "" {
		fmt.Printf("Matched image: %s\n", result.MatchedImage)
	}

	// Print execution time
	duration := time.Since(startTime)
	fmt.Printf("\nTotal verification time: %v\n", duration)
}

func handleInspectCommand(args map[string]string, cfg *config.Config) {
	imagePath := args["image"]

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		log.Fatalf("Error reading image %s: %v", imagePath, err)
	}

	client := labels.NewHTTPClient(
		cfg.Labels.Endpoint,
		cfg.Labels.APIKey,
		cfg.Labels.MaxResults,
		cfg.LabelsTimeout(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LabelsTimeout())
	defer cancel()

	labelSet, err := client.Classify(ctx, imageBytes)
	if err != nil {
		log.Fatalf("Error classifying image: %v", err)
	}

	logging.DebugLog("label service returned %d labels for %s", len(labelSet), imagePath)

	inspector := inspection.NewInspector(inspection.DefaultRules(), cfg.Labels.MinScore)
	report := inspector.Inspect(labelSet)

	printReport(report)
}

func printResult(result types.AuthenticityResult) {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding result: %v", err)
	}
	fmt.Println(string(encoded))
}

func printReport(report types.InspectionReport) {
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding report: %v", err)
	}
	fmt.Println(string(encoded))
}
