package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --embedding-provider
// on "pdfqa serve", "pdfqa ingest" and "pdfqa query").
type Flag struct {
	// Name is the long flag name (e.g. "embedding-provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "embedding.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagDataDir         = "data-dir"
	FlagUploadDir       = "upload-dir"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagVectorStoreColl = "vector-store-collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagWatchDir        = "watch-dir"
	FlagIngestWorkers   = "ingest-workers"
	FlagEventsProvider  = "events-provider"
	FlagEventsBrokers   = "events-brokers"
	FlagEventsTopic     = "events-topic"
)

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// Flags is the registry shared by every pdfqa command.
var Flags = FlagSet{
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "pdfqa API server URL"},
	FlagDataDir:         {Name: "data-dir", ViperKey: "storage.data_dir", Description: "Directory for the local vector store (default: .pdfqa/data)"},
	FlagUploadDir:       {Name: "upload-dir", ViperKey: "storage.upload_dir", Description: "Directory for uploaded documents (default: .pdfqa/uploads)"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store persister (file, sqlite, postgres, qdrant, memory)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (directory, database path, DSN or host:port)"},
	FlagVectorStoreColl: {Name: "vector-store-collection", ViperKey: "vector_store.collection", Description: "Qdrant collection name"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (hashing is offline keyword matching, not semantic; ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality (hashing provider)"},
	FlagWatchDir:        {Name: "watch-dir", Shorthand: "w", ViperKey: "ingest.watch_dir", Description: "Inbox directory watched for new documents"},
	FlagIngestWorkers:   {Name: "workers", ViperKey: "ingest.workers", Description: "Number of background ingest workers"},
	FlagEventsProvider:  {Name: "events-provider", ViperKey: "events.provider", Description: "Ingestion event publisher (nop, kafka)"},
	FlagEventsBrokers:   {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventsTopic:     {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for ingestion events"},
}

// StoreFlags are the flags of every command that opens the local store.
var StoreFlags = []string{
	FlagDataDir,
	FlagVectorStoreProv,
	FlagVectorStoreTgt,
	FlagVectorStoreColl,
	FlagEmbeddingProv,
	FlagEmbeddingTgt,
	FlagEmbeddingModel,
	FlagEmbeddingDims,
}

// AddFlags registers the given registry keys on cmd from Flags. The target
// of every flag is owned by cobra; values are read back through viper once
// BindRegisteredFlags has run.
func AddFlags(cmd *cobra.Command, registryKeys ...string) {
	for _, key := range registryKeys {
		def, ok := Flags[key]
		if !ok {
			continue
		}

		switch def.ViperKey {
		case "embedding.dimensions", "ingest.workers":
			AddUintFlag(cmd, Flags, key, new(uint))
		default:
			AddStringFlag(cmd, Flags, key, new(string))
		}
	}
}

// Resolve initializes viper for configDir, binds the given flags of cmd and
// returns the effective configuration.
func Resolve(cmd *cobra.Command, configDir string, registryKeys ...string) (*Config, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	return FromViper(v), nil
}
