package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdesk/internal/connectors/filesystem"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/normalisers/web"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
)

// userAgent is sent when fetching web pages.
const userAgent = "ragdesk (+https://github.com/custodia-labs/ragdesk)"

// closers runs cleanup funcs in reverse order of registration.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// bootstrap wires every service for one CLI invocation.
//
// A broken AI configuration does not fail the bootstrap: documents and
// settings stay usable and Services.AIErr explains why indexing and chat
// are not.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	store, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	bindSecrets(store)

	var config driven.ConfigStore = store
	if opts.Ephemeral {
		config = memory.NewOverlay(store)
	}
	settingsSvc := services.NewSettingsService(config, ai.NewConfigValidator())

	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsSvc}, nil
	}

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var cleanup closers
	ok := false
	defer func() {
		if !ok {
			cleanup.close()
		}
	}()

	stores, fileStore, err := openStores(dataDir, opts.Ephemeral, &cleanup)
	if err != nil {
		return nil, err
	}

	extractor := normalisers.NewExtractor(normalisers.NewDefaultRegistry(), web.NewFetcher(web.Config{
		UserAgent: userAgent,
	}))

	svcs := &cli.Services{Settings: settingsSvc}

	providers, err := ai.Init(ctx, settings)
	if err == nil {
		cleanup.add(providers.Close)
		err = wireAI(ctx, svcs, settings, providers, stores, fileStore, extractor, dataDir)
	}
	if err != nil {
		logger.Debug("AI providers unavailable: %v", err)
		svcs.AIErr = err
		var vectors driven.VectorIndex
		if providers != nil {
			vectors = providers.VectorIndex
		}
		svcs.Document = services.NewDocumentService(stores.docs, stores.index, extractor, fileStore,
			fallbackRemover(ctx, settings, vectors, stores, fileStore, err, &cleanup))
	}

	// Folder sync indexes every imported file, so it needs the providers.
	if svcs.Index != nil {
		svcs.FolderSync = services.NewFolderSync(svcs.Document, svcs.Index, openFolder)
	}

	svcs.Close = cleanup.close
	ok = true
	return svcs, nil
}

func openFolder(root string) (driven.FolderSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	return filesystem.New(abs, normalisers.SupportedExtensions()), nil
}

// relational groups the three store ports.
type relational struct {
	docs  driven.DocumentStore
	index driven.IndexStore
	chat  driven.ChatStore
}

func openStores(dataDir string, ephemeral bool, cleanup *closers) (relational, driven.FileStore, error) {
	if ephemeral {
		mem := memory.NewStore()
		tmp, err := os.MkdirTemp("", "ragdesk-files-")
		if err != nil {
			return relational{}, nil, fmt.Errorf("create temp file store: %w", err)
		}
		cleanup.add(func() { _ = os.RemoveAll(tmp) })
		fs, err := files.New(tmp)
		if err != nil {
			return relational{}, nil, err
		}
		return relational{docs: mem, index: mem, chat: mem}, fs, nil
	}

	db, err := sqlite.NewStore(filepath.Join(dataDir, "data"))
	if err != nil {
		return relational{}, nil, fmt.Errorf("open database: %w", err)
	}
	cleanup.add(func() {
		if err := db.Close(); err != nil {
			logger.Warn("Closing database: %v", err)
		}
	})

	fs, err := files.New(filepath.Join(dataDir, "files"))
	if err != nil {
		return relational{}, nil, err
	}
	return relational{docs: db.DocumentStore(), index: db.IndexStore(), chat: db.ChatStore()}, fs, nil
}

// wireAI builds the index manager, document service and retrieval engine.
func wireAI(
	ctx context.Context,
	svcs *cli.Services,
	settings *domain.AppSettings,
	providers *ai.InitResult,
	stores relational,
	fileStore driven.FileStore,
	extractor driven.ContentExtractor,
	dataDir string,
) error {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunker, err := registry.Build(settings.Chunking.Strategy, map[string]any{
		"chunk_size": settings.Chunking.Size,
		"overlap":    settings.Chunking.Overlap,
	})
	if err != nil {
		return fmt.Errorf("build chunker: %w", err)
	}

	manager := services.NewIndexManager(
		stores.docs, stores.index, stores.chat,
		providers.VectorIndex, providers.EmbeddingService, chunker, fileStore,
		services.IndexConfig{
			EmbedTimeout:  settings.Timeouts.Embedding,
			VectorTimeout: settings.Timeouts.Vector,
		},
	)
	if err := manager.Connect(ctx); err != nil {
		// Indexing reports the same failure; documents and chat history
		// stay readable meanwhile.
		logger.Warn("Vector index not ready: %v", err)
	}

	engine := services.NewRetrievalEngine(
		stores.index, stores.chat,
		providers.VectorIndex, providers.EmbeddingService, providers.LLMService,
		services.RetrievalConfig{
			TopK:          settings.Retrieval.TopK,
			Temperature:   settings.Retrieval.Temperature,
			EmbedTimeout:  settings.Timeouts.Embedding,
			SearchTimeout: settings.Timeouts.Vector,
			LLMTimeout:    settings.Timeouts.LLM,
		},
	)
	if prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts")); err == nil {
		engine.SetPromptStore(prompts)
	} else {
		logger.Debug("Using built-in prompts: %v", err)
	}

	svcs.Index = manager
	svcs.Chat = engine
	svcs.Document = services.NewDocumentService(stores.docs, stores.index, extractor, fileStore, manager)
	return nil
}

// fallbackRemover lets documents be deleted while the AI providers are down.
// Deleting needs only the vector index, not the embedder. vectors is
// opened from settings when nil.
func fallbackRemover(
	ctx context.Context,
	settings *domain.AppSettings,
	vectors driven.VectorIndex,
	stores relational,
	fileStore driven.FileStore,
	cause error,
	cleanup *closers,
) services.DocumentRemover {
	if vectors == nil {
		var err error
		vectors, err = ai.CreateVectorIndex(ctx, &settings.VectorIndex, settings.Timeouts.Vector)
		if err != nil {
			return unavailableRemover{err: errors.Join(cause, err)}
		}
		cleanup.add(func() { _ = vectors.Close() })
	}
	return services.NewIndexManager(stores.docs, stores.index, stores.chat, vectors, nil, nil, fileStore,
		services.IndexConfig{VectorTimeout: settings.Timeouts.Vector})
}

type unavailableRemover struct{ err error }

func (r unavailableRemover) Delete(context.Context, string, string) error {
	return fmt.Errorf("delete needs the vector index: %w", r.err)
}

// bindSecrets lets API keys come from the environment (or a .env file)
// instead of config.toml.
func bindSecrets(store *file.ConfigStore) {
	if env := cli.APIKeyEnv(domain.AIProvider(store.GetString("embedding.provider"))); env != "" {
		store.BindEnv("embedding.api_key", env)
	}
	if env := cli.APIKeyEnv(domain.AIProvider(store.GetString("llm.provider"))); env != "" {
		store.BindEnv("llm.api_key", env)
	}
	store.BindEnv("vector.api_key", "QDRANT_API_KEY")
	store.BindEnv("vector.dsn", "RAGDESK_PG_DSN")
}
