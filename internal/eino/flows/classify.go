// Package flows 提供 Eino Graph 流程定义
package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ecb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"inquiry-classifier/configs"
	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/internal/eino/callbacks"
	"inquiry-classifier/internal/eino/nodes"
	"inquiry-classifier/internal/events"
	"inquiry-classifier/internal/infrastructure/cache"
	"inquiry-classifier/internal/infrastructure/persistence"
	"inquiry-classifier/internal/infrastructure/ratelimit"
	"inquiry-classifier/internal/llm"
	"inquiry-classifier/pkg/errs"
	"inquiry-classifier/pkg/logger"
)

// ClassifyInput 定义分类请求的输入参数。
// InquiryID 由调用方预先分配，进度事件在流水线启动前即可订阅。
type ClassifyInput struct {
	InquiryID     string                  `json:"inquiry_id"`
	Text          string                  `json:"text"`
	Metadata      *models.InquiryMetadata `json:"metadata,omitempty"`
	AllowDegraded bool                    `json:"allow_degraded,omitempty"`
	ClientKey     string                  `json:"-"`
}

// pipelineState 流水线节点间传递的共享状态。
// 语言检测在独立 goroutine 中与缓存查找并发执行，
// 需要结果的节点通过 language() 汇合。
type pipelineState struct {
	input       *ClassifyInput
	startedAt   time.Time
	sanitized   string
	fingerprint string

	langCh   chan models.Language
	langOnce sync.Once
	lang     models.Language

	result   *models.ClassificationResult
	cacheHit bool

	// LLM失败或置信度不足时走规则回退
	needFallback bool
	// 限流拒绝但调用方接受降级
	degraded bool
}

// language 汇合语言检测结果，首次调用阻塞直至检测完成。
func (s *pipelineState) language() models.Language {
	s.langOnce.Do(func() {
		s.lang = <-s.langCh
	})
	return s.lang
}

// ClassifyGraph 询盘分类 Graph。
// 流程：清洗 -> 缓存查找 -> 限流检查 -> LLM分类/规则回退 -> 收尾。
type ClassifyGraph struct {
	tier       *cache.TierManager
	limiter    *ratelimit.Limiter
	classifier llm.Classifier
	hub        *events.Hub
	audit      persistence.AuditStore
	metrics    *callbacks.MetricsHandler
	cfg        *configs.Config
	logger     logger.Logger

	callbackHandlers []ecb.Handler
}

// WithMetrics 挂接业务指标收集器，统计接口消费其快照。
func (g *ClassifyGraph) WithMetrics(m *callbacks.MetricsHandler) *ClassifyGraph {
	g.metrics = m
	return g
}

// NewClassifyGraph 创建询盘分类 Graph。
// 参数 tier: 分层缓存管理器。
// 参数 limiter: 令牌桶限流器。
// 参数 classifier: LLM 分类器。
// 参数 hub: 进度事件中心。
// 参数 audit: 审计存储。
// 参数 cfg: 应用配置。
// 参数 log: 日志记录器。
// 参数 callbackHandlers: 可选的回调处理器列表。
// 返回: ClassifyGraph 指针。
func NewClassifyGraph(
	tier *cache.TierManager,
	limiter *ratelimit.Limiter,
	classifier llm.Classifier,
	hub *events.Hub,
	audit persistence.AuditStore,
	cfg *configs.Config,
	log logger.Logger,
	callbackHandlers ...ecb.Handler,
) *ClassifyGraph {
	return &ClassifyGraph{
		tier:             tier,
		limiter:          limiter,
		classifier:       classifier,
		hub:              hub,
		audit:            audit,
		cfg:              cfg,
		logger:           log,
		callbackHandlers: callbackHandlers,
	}
}

// Compile 将 Graph 编译为可执行的 Runnable 实例。
// 参数 ctx: 上下文对象。
// 返回: 可执行的 Runnable 对象或错误。
func (g *ClassifyGraph) Compile(ctx context.Context) (compose.Runnable[*ClassifyInput, *models.ClassificationResult], error) {
	graph := compose.NewGraph[*ClassifyInput, *models.ClassificationResult]()

	// 1. 添加清洗节点：校验失败的请求在此终止
	sanitizeNode := compose.InvokableLambda(func(ctx context.Context, input *ClassifyInput) (*pipelineState, error) {
		g.hub.PublishStart(input.InquiryID)

		sanitized, err := nodes.SanitizeText(ctx, input.Text)
		if err != nil {
			g.hub.PublishError(input.InquiryID, err.Error())
			return nil, err
		}
		input.Metadata = nodes.SanitizeMetadata(input.Metadata)

		state := &pipelineState{
			input:       input,
			startedAt:   time.Now(),
			sanitized:   sanitized,
			fingerprint: cache.Fingerprint(sanitized),
			langCh:      make(chan models.Language, 1),
		}

		// 语言检测与缓存查找并发执行
		go func() {
			state.langCh <- nodes.Detect(sanitized)
		}()

		return state, nil
	})
	if err := graph.AddLambdaNode("sanitize", sanitizeNode); err != nil {
		return nil, fmt.Errorf("add sanitize node: %w", err)
	}

	// 2. 添加缓存查找节点
	cacheLookupNode := compose.InvokableLambda(func(ctx context.Context, state *pipelineState) (*pipelineState, error) {
		g.hub.PublishProgress(state.input.InquiryID, events.StageCacheLookup, 20)

		if !g.cfg.Cache.Enabled {
			return state, nil
		}

		if cached, hit := g.tier.Lookup(ctx, state.fingerprint); hit {
			state.result = cached.Clone()
			state.cacheHit = true
			g.logger.DebugContext(ctx, "分类缓存命中",
				"inquiry_id", state.input.InquiryID,
				"fingerprint", state.fingerprint)
		}
		return state, nil
	})
	if err := graph.AddLambdaNode("cache_lookup", cacheLookupNode); err != nil {
		return nil, fmt.Errorf("add cache_lookup node: %w", err)
	}

	// 3. 添加限流检查节点：缓存命中不经过此节点
	rateCheckNode := compose.InvokableLambda(func(ctx context.Context, state *pipelineState) (*pipelineState, error) {
		g.hub.PublishProgress(state.input.InquiryID, events.StageRateCheck, 40)

		if err := g.limiter.Allow(state.input.ClientKey); err != nil {
			if state.input.AllowDegraded {
				// 调用方接受降级结果，改走规则回退
				state.degraded = true
				state.needFallback = true
				return state, nil
			}
			g.hub.PublishError(state.input.InquiryID, "rate limit exceeded")
			return nil, err
		}
		return state, nil
	})
	if err := graph.AddLambdaNode("rate_check", rateCheckNode); err != nil {
		return nil, fmt.Errorf("add rate_check node: %w", err)
	}

	// 4. 添加LLM分类节点
	llmNode := compose.InvokableLambda(func(ctx context.Context, state *pipelineState) (*pipelineState, error) {
		g.hub.PublishProgress(state.input.InquiryID, events.StageLLMCall, 60)
		language := state.language()

		// 同一指纹的并发请求合并为一次模型调用
		result, shared, err := g.tier.DoOnce(ctx, state.fingerprint, func() (*models.ClassificationResult, error) {
			classified, callErr := g.classifier.Classify(ctx, state.sanitized, language)
			if callErr != nil {
				return nil, callErr
			}
			if g.cfg.Cache.Enabled && classified.Confidence >= g.cfg.LLM.ConfidenceFloor {
				g.hub.PublishProgress(state.input.InquiryID, events.StageCacheStore, 80)
				g.tier.StoreResult(ctx, state.fingerprint, classified)
			}
			return classified, nil
		})
		if err != nil {
			g.logger.WarnContext(ctx, "LLM分类失败，使用规则回退",
				"inquiry_id", state.input.InquiryID,
				"error", err.Error())
			state.needFallback = true
			return state, nil
		}
		if result.Confidence < g.cfg.LLM.ConfidenceFloor {
			g.logger.InfoContext(ctx, "LLM置信度低于下限，使用规则回退",
				"inquiry_id", state.input.InquiryID,
				"confidence", result.Confidence)
			state.needFallback = true
			return state, nil
		}

		state.result = result.Clone()
		if shared {
			g.logger.DebugContext(ctx, "复用进行中的同指纹分类结果",
				"inquiry_id", state.input.InquiryID,
				"fingerprint", state.fingerprint)
		}
		return state, nil
	})
	if err := graph.AddLambdaNode("llm_classify", llmNode); err != nil {
		return nil, fmt.Errorf("add llm_classify node: %w", err)
	}

	// 5. 添加规则回退节点：永不失败
	fallbackNode := compose.InvokableLambda(func(ctx context.Context, state *pipelineState) (*pipelineState, error) {
		g.hub.PublishProgress(state.input.InquiryID, events.StageFallback, 60)

		result, err := nodes.RuleClassify(ctx, state.sanitized, state.language())
		if err != nil {
			return nil, err
		}
		state.result = result
		return state, nil
	})
	if err := graph.AddLambdaNode("fallback", fallbackNode); err != nil {
		return nil, fmt.Errorf("add fallback node: %w", err)
	}

	// 6. 添加收尾节点：补齐ID与耗时、持久化审计、发布完成事件
	finalizeNode := compose.InvokableLambda(func(ctx context.Context, state *pipelineState) (*models.ClassificationResult, error) {
		result := state.result
		result.ID = state.input.InquiryID
		result.ProcessedAt = time.Now()
		if result.DetectedLanguage == "" {
			result.DetectedLanguage = state.language()
		}
		if result.ModelVersion == "" && !result.FallbackUsed {
			result.ModelVersion = g.cfg.LLM.ModelVersion
		}

		elapsed := time.Since(state.startedAt).Milliseconds()
		if elapsed < 1 {
			elapsed = 1
		}
		result.ProcessingTimeMs = elapsed

		// 审计写入不阻塞响应
		record := result.Clone()
		go func() {
			auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.audit.Put(auditCtx, record); err != nil {
				g.logger.Warn("审计记录写入失败",
					"inquiry_id", record.ID,
					"error", err.Error())
			}
		}()

		if g.metrics != nil {
			g.metrics.RecordClassification(result, state.cacheHit)
		}
		g.hub.PublishComplete(state.input.InquiryID, result)
		return result, nil
	})
	if err := graph.AddLambdaNode("finalize", finalizeNode); err != nil {
		return nil, fmt.Errorf("add finalize node: %w", err)
	}

	// 7. 添加条件分支
	cacheBranch := compose.NewGraphBranch(func(ctx context.Context, state *pipelineState) (string, error) {
		if state.cacheHit {
			return "finalize", nil
		}
		return "rate_check", nil
	}, map[string]bool{
		"finalize":   true,
		"rate_check": true,
	})
	if err := graph.AddBranch("cache_lookup", cacheBranch); err != nil {
		return nil, fmt.Errorf("add cache branch: %w", err)
	}

	rateBranch := compose.NewGraphBranch(func(ctx context.Context, state *pipelineState) (string, error) {
		if state.needFallback {
			return "fallback", nil
		}
		return "llm_classify", nil
	}, map[string]bool{
		"fallback":     true,
		"llm_classify": true,
	})
	if err := graph.AddBranch("rate_check", rateBranch); err != nil {
		return nil, fmt.Errorf("add rate branch: %w", err)
	}

	llmBranch := compose.NewGraphBranch(func(ctx context.Context, state *pipelineState) (string, error) {
		if state.needFallback {
			return "fallback", nil
		}
		return "finalize", nil
	}, map[string]bool{
		"fallback": true,
		"finalize": true,
	})
	if err := graph.AddBranch("llm_classify", llmBranch); err != nil {
		return nil, fmt.Errorf("add llm branch: %w", err)
	}

	// 8. 连接节点
	if err := graph.AddEdge(compose.START, "sanitize"); err != nil {
		return nil, fmt.Errorf("add edge START->sanitize: %w", err)
	}
	if err := graph.AddEdge("sanitize", "cache_lookup"); err != nil {
		return nil, fmt.Errorf("add edge sanitize->cache_lookup: %w", err)
	}
	// Branch 已经定义了 cache_lookup/rate_check/llm_classify 之后的连接
	if err := graph.AddEdge("fallback", "finalize"); err != nil {
		return nil, fmt.Errorf("add edge fallback->finalize: %w", err)
	}
	if err := graph.AddEdge("finalize", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize->END: %w", err)
	}

	// 编译 Graph
	compileOpts := []compose.GraphCompileOption{
		compose.WithGraphName("inquiry_classify"),
	}
	return graph.Compile(ctx, compileOpts...)
}

// ClassifyService 封装已编译的分类 Graph 供 HTTP 层调用。
// Graph 在服务启动时编译一次，请求路径只做 Invoke。
type ClassifyService struct {
	runnable compose.Runnable[*ClassifyInput, *models.ClassificationResult]
	handlers []ecb.Handler
}

// NewClassifyService 编译 Graph 并创建分类服务。
func NewClassifyService(ctx context.Context, graph *ClassifyGraph) (*ClassifyService, error) {
	runnable, err := graph.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile classify graph: %w", err)
	}
	return &ClassifyService{
		runnable: runnable,
		handlers: graph.callbackHandlers,
	}, nil
}

// Classify 执行一次分类。
// 校验失败返回 *errs.ValidationError，限流拒绝返回 *errs.RateLimitedError。
func (s *ClassifyService) Classify(ctx context.Context, input *ClassifyInput) (*models.ClassificationResult, error) {
	opts := make([]compose.Option, 0, 1)
	if len(s.handlers) > 0 {
		opts = append(opts, compose.WithCallbacks(s.handlers...))
	}
	return s.runnable.Invoke(ctx, input, opts...)
}

// IsRetryable 判断分类错误是否值得客户端重试。
func IsRetryable(err error) bool {
	if _, ok := errs.AsRateLimited(err); ok {
		return true
	}
	return errors.Is(err, errs.ErrLLMTimeout) || errors.Is(err, errs.ErrLLMProvider)
}
