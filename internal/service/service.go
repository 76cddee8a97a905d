// Package service wires the merge pipeline: image loading, model builds,
// plan assembly and persistence.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dexmerge/internal/advisor"
	"github.com/dexmerge/internal/classmerge"
	"github.com/dexmerge/internal/conf"
	"github.com/dexmerge/internal/dex"
	"github.com/dexmerge/internal/refcheck"
	"github.com/dexmerge/internal/repository"
	"github.com/dexmerge/internal/storage"
	"github.com/dexmerge/internal/typesystem"
	"github.com/dexmerge/pkg/config"
	"github.com/dexmerge/pkg/model"
	"github.com/dexmerge/pkg/parallel"
	"github.com/dexmerge/pkg/utils"
)

// Pipeline is the merge run orchestrator.
type Pipeline struct {
	config  *config.Config
	logger  utils.Logger
	advisor *advisor.Advisor

	// Optional collaborators; nil when persistence/upload is off.
	repos *repository.Repositories
	store storage.Storage
}

// New creates a new Pipeline instance.
func New(cfg *config.Config, logger utils.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stderr)
	}

	return &Pipeline{
		config:  cfg,
		logger:  logger,
		advisor: advisor.NewAdvisor(),
	}, nil
}

// Initialize connects the optional collaborators: the database when run
// persistence is enabled, and object storage for plan upload.
func (p *Pipeline) Initialize(ctx context.Context) error {
	if p.config.Database.Enabled {
		if err := p.initDatabase(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if p.config.Storage.Type != "" {
		if err := p.initStorage(); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	return nil
}

func (p *Pipeline) initDatabase() error {
	p.logger.Info("Connecting to database (%s)...", p.config.Database.Type)

	dbConfig := &repository.DBConfig{
		Type:     p.config.Database.Type,
		Host:     p.config.Database.Host,
		Port:     p.config.Database.Port,
		Database: p.config.Database.Database,
		User:     p.config.Database.User,
		Password: p.config.Database.Password,
		MaxConns: p.config.Database.MaxConns,
	}

	gormDB, err := repository.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	p.repos = repository.NewRepositories(gormDB, p.config.Database.Type, p.config.Merge.Version)
	p.logger.Info("Database connection established")

	return nil
}

func (p *Pipeline) initStorage() error {
	p.logger.Info("Initializing storage (%s)...", p.config.Storage.Type)

	store, err := storage.NewStorage(&p.config.Storage)
	if err != nil {
		return err
	}

	p.store = store
	return nil
}

// Close releases the pipeline's external connections.
func (p *Pipeline) Close() error {
	if p.repos != nil {
		return p.repos.Close()
	}
	return nil
}

// RunResult bundles the outputs of one merge run.
type RunResult struct {
	Run    *model.MergeRun
	Plan   *model.MergePlan
	Models []*classmerge.Model

	// Suggestions collected from the advisor across all models.
	Suggestions []model.Suggestion

	// PlanPath is the local file the plan was written to.
	PlanPath string
}

// Run executes a full merge run over the image at imagePath: build every
// configured model, assemble the plan, persist and upload artifacts.
func (p *Pipeline) Run(ctx context.Context, imagePath string) (*RunResult, error) {
	runUUID := uuid.NewString()
	run := model.NewMergeRun(0, runUUID, imagePath)
	run.NumModels = len(p.config.Models)
	now := time.Now()
	run.BeginTime = &now
	run.Status = model.RunStatusRunning

	log := p.logger.WithField("rid", runUUID)
	log.Info("Starting merge run over %s (%d models)", imagePath, len(p.config.Models))

	prog, err := p.loadImage(imagePath)
	if err != nil {
		return p.failRun(ctx, run, err)
	}

	orderConf, err := p.loadOrderFile()
	if err != nil {
		return p.failRun(ctx, run, err)
	}

	models, err := p.buildModels(ctx, prog, orderConf, log)
	if err != nil {
		return p.failRun(ctx, run, err)
	}

	sink := &logMetricsSink{log: log}
	for _, m := range models {
		m.Flush(sink)
	}

	plan := BuildPlan(runUUID, p.config.Merge.Version, models)

	suggestions := p.advise(runUUID, plan)

	planPath, err := p.writePlan(runUUID, plan)
	if err != nil {
		return p.failRun(ctx, run, err)
	}
	run.PlanFile = planPath

	if err := p.persist(ctx, run, plan, suggestions); err != nil {
		return p.failRun(ctx, run, err)
	}

	end := time.Now()
	run.EndTime = &end
	run.Status = model.RunStatusCompleted
	log.Info("Merge run completed: %d classes merged into %d generated classes",
		plan.Totals.ClassesMerged, plan.Totals.GeneratedClasses)

	return &RunResult{
		Run:         run,
		Plan:        plan,
		Models:      models,
		Suggestions: suggestions,
		PlanPath:    planPath,
	}, nil
}

func (p *Pipeline) failRun(ctx context.Context, run *model.MergeRun, err error) (*RunResult, error) {
	end := time.Now()
	run.EndTime = &end
	run.Status = model.RunStatusFailed
	run.StatusInfo = err.Error()

	if p.repos != nil && run.ID != 0 {
		if uerr := p.repos.Run.UpdateStatusWithInfo(ctx, run.ID, run.Status, run.StatusInfo); uerr != nil {
			p.logger.Warn("Failed to record run failure: %v", uerr)
		}
	}

	return nil, err
}

func (p *Pipeline) loadImage(imagePath string) (*dex.Program, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	ix := dex.NewTypeIndex()
	prog, err := dex.LoadImage(f, ix)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	p.logger.Info("Loaded image: %d classes, %d dexes",
		prog.Scope.Len(), prog.Stores.NumDexes())
	return prog, nil
}

func (p *Pipeline) loadOrderFile() (*conf.ConfigFiles, error) {
	path := p.config.Merge.OrderFile
	if path == "" {
		return &conf.ConfigFiles{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order file: %w", err)
	}
	defer f.Close()

	cfg, err := conf.LoadOrderFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order file: %w", err)
	}

	p.logger.Info("Loaded order file: %d entries, %d groups",
		len(cfg.Entries()), cfg.NumGroups())
	return cfg, nil
}

// buildModels builds every configured model, in parallel up to
// merge.max_worker. The interdex assignment is computed once per
// inferring mode and shared read-only across the models using it.
func (p *Pipeline) buildModels(
	ctx context.Context,
	prog *dex.Program,
	orderConf *conf.ConfigFiles,
	log utils.Logger,
) ([]*classmerge.Model, error) {
	ts, err := typesystem.New(prog.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to build type system: %w", err)
	}

	specs := make([]*classmerge.ModelSpec, 0, len(p.config.Models))
	for i := range p.config.Models {
		spec, err := classmerge.SpecFromConfig(&p.config.Models[i], prog.Index)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", p.config.Models[i].Name, err)
		}
		specs = append(specs, spec)
	}

	interdexByMode := make(map[classmerge.InterDexInferringMode]*classmerge.InterdexGroupAssignment)
	for _, spec := range specs {
		if !spec.InterdexGroupingEnabled() {
			continue
		}
		if _, ok := interdexByMode[spec.InterdexInferringMode]; !ok {
			interdexByMode[spec.InterdexInferringMode] = classmerge.BuildInterdexGroups(
				orderConf, prog.Scope, prog.Index, spec.InterdexInferringMode)
		}
	}

	tasks := make([]parallel.Task[*classmerge.ModelSpec, *classmerge.Model], 0, len(specs))
	for _, spec := range specs {
		tasks = append(tasks, parallel.NewTask(spec,
			func(ctx context.Context, spec *classmerge.ModelSpec) (*classmerge.Model, error) {
				rc, err := refcheck.New(prog, refcheck.Config{
					MergeTypesWithStaticFields: spec.MergeTypesWithStaticFields,
					ExcludeTypeLikeStrings:     spec.ExcludeTypeLikeStrings(),
					UnsupportedAnnos:           spec.GenAnnos,
					SafeNamespaces:             spec.GeneratedNamespaces(),
				})
				if err != nil {
					return nil, err
				}
				return classmerge.BuildModel(ctx, prog, orderConf, spec, ts, rc,
					interdexByMode[spec.InterdexInferringMode], log)
			}))
	}

	pool := parallel.NewWorkerPool[*classmerge.ModelSpec, *classmerge.Model](
		parallel.DefaultPoolConfig().WithWorkers(p.config.Merge.MaxWorker))
	results := pool.Execute(ctx, tasks)

	models := make([]*classmerge.Model, 0, len(results))
	for _, res := range results {
		if res.Error != nil {
			return nil, fmt.Errorf("model %s: %w", res.Input.Name, res.Error)
		}
		models = append(models, res.Result)
	}

	return models, nil
}

// logMetricsSink routes model build counters to the run logger.
type logMetricsSink struct {
	log utils.Logger
}

func (s *logMetricsSink) IncrBy(name string, value int) {
	s.log.Debug("metric %s += %d", name, value)
}

func (p *Pipeline) advise(runUUID string, plan *model.MergePlan) []model.Suggestion {
	var suggestions []model.Suggestion
	for i := range plan.Models {
		suggestions = append(suggestions, p.advisor.Advise(&advisor.RuleContext{
			RunUUID: runUUID,
			Report:  &plan.Models[i],
		})...)
	}
	return suggestions
}

func (p *Pipeline) writePlan(runUUID string, plan *model.MergePlan) (string, error) {
	runDir := p.config.GetRunDir(runUUID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	planPath := filepath.Join(runDir, "plan.json")
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(planPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write plan: %w", err)
	}

	return planPath, nil
}

func (p *Pipeline) persist(
	ctx context.Context,
	run *model.MergeRun,
	plan *model.MergePlan,
	suggestions []model.Suggestion,
) error {
	if p.store != nil {
		if err := p.store.UploadFile(ctx, storage.PlanKey(run.RunUUID), run.PlanFile); err != nil {
			return fmt.Errorf("failed to upload plan: %w", err)
		}
	}

	if p.repos == nil {
		return nil
	}

	if err := p.repos.Run.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	if err := p.repos.Plan.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	if err := p.repos.Suggestion.SaveSuggestions(ctx, suggestions); err != nil {
		return fmt.Errorf("failed to save suggestions: %w", err)
	}
	if err := p.repos.Run.UpdateStatusWithInfo(ctx, run.ID, model.RunStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to finish run record: %w", err)
	}

	return nil
}

// BuildOnly builds a single named model without writing or persisting any
// artifacts. It backs inspection commands.
func (p *Pipeline) BuildOnly(ctx context.Context, imagePath, modelName string) (*classmerge.Model, error) {
	prog, err := p.loadImage(imagePath)
	if err != nil {
		return nil, err
	}

	orderConf, err := p.loadOrderFile()
	if err != nil {
		return nil, err
	}

	for i := range p.config.Models {
		if p.config.Models[i].Name != modelName {
			continue
		}

		scoped := *p.config
		scoped.Models = p.config.Models[i : i+1]
		sub := &Pipeline{config: &scoped, logger: p.logger, advisor: p.advisor}

		models, err := sub.buildModels(ctx, prog, orderConf, p.logger)
		if err != nil {
			return nil, err
		}
		return models[0], nil
	}

	return nil, fmt.Errorf("model not configured: %s", modelName)
}
