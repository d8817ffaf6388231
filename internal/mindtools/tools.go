package mindtools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/openclaw/mind/internal/dream"
	"github.com/openclaw/mind/internal/store"
)

// --- Tool Definitions ---

func logStressTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_log_stress",
		"Log a user stress signal (correction, frustration, or explicit negative feedback) for later dream-phase analysis.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"signal_type": {
					"type": "string",
					"enum": ["correction", "frustration", "explicit_negative"],
					"description": "Kind of stress signal observed"
				},
				"context": {
					"type": "string",
					"description": "What the user said or did, quoted or paraphrased"
				},
				"intensity": {
					"type": "integer",
					"description": "Perceived intensity from 1 (mild) to 5 (severe)"
				},
				"session_key": {
					"type": "string",
					"description": "Opaque session correlation key (optional)"
				}
			},
			"required": ["signal_type", "context"]
		}`),
	)
}

func confessUncertaintyTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_confess_uncertainty",
		"Record that the agent is proceeding with low confidence, and get a suggested way to involve the user.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"area": {
					"type": "string",
					"description": "What the uncertainty is about"
				},
				"confidence": {
					"type": "number",
					"description": "Self-assessed confidence between 0 and 1"
				},
				"alternative_action": {
					"type": "string",
					"description": "A safer alternative the agent could take instead (optional)"
				},
				"session_key": {
					"type": "string",
					"description": "Opaque session correlation key (optional)"
				}
			},
			"required": ["area", "confidence"]
		}`),
	)
}

func logEthicalRefusalTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_log_ethical_refusal",
		"Log that a request was refused on ethical grounds. Refusing harm is a success and is recorded as one.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"domain": {
					"type": "string",
					"enum": ["violence", "deception", "exploitation", "privacy", "other"],
					"description": "Ethical domain of the refused request"
				},
				"request_summary": {
					"type": "string",
					"description": "Short neutral summary of what was asked"
				},
				"reasoning": {
					"type": "string",
					"description": "Why the request was refused"
				},
				"session_key": {
					"type": "string",
					"description": "Opaque session correlation key (optional)"
				}
			},
			"required": ["domain", "request_summary", "reasoning"]
		}`),
	)
}

func logGuidanceTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_log_guidance",
		"Log meta-guidance the user gave about how the agent should work.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"topic": {
					"type": "string",
					"description": "What the guidance is about"
				},
				"advice": {
					"type": "string",
					"description": "The guidance itself"
				},
				"context": {
					"type": "string",
					"description": "Situation in which the guidance was given (optional)"
				},
				"session_key": {
					"type": "string",
					"description": "Opaque session correlation key (optional)"
				}
			},
			"required": ["topic", "advice"]
		}`),
	)
}

func dreamTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_dream",
		"Run the dream phase: apply relevance decay, synthesize recent behavioral signals into a sanitized analysis prompt, and record the dream.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"days_to_analyze": {
					"type": "integer",
					"description": "Analysis window in days, 1 to 30 (default 7)"
				}
			}
		}`),
	)
}

func getLearningsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_get_learnings",
		"List approved and pending tactical learnings.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

func approveLearningTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_approve_learning",
		"Approve a pending learning so it is injected into the system prompt. Only the user decides this.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "integer",
					"description": "Learning id"
				}
			},
			"required": ["id"]
		}`),
	)
}

func rejectLearningTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_reject_learning",
		"Reject a learning. A tombstone keeps it from being re-proposed in future dreams.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "integer",
					"description": "Learning id"
				}
			},
			"required": ["id"]
		}`),
	)
}

func saveLearningTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"mind_save_learning",
		"Save a proposed tactical learning as pending, awaiting user approval.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {
					"type": "string",
					"description": "Short memorable title"
				},
				"content": {
					"type": "string",
					"description": "The behavioral rule, 50 words or fewer"
				},
				"rationale": {
					"type": "string",
					"description": "Which observed signals motivated this learning"
				}
			},
			"required": ["title", "content", "rationale"]
		}`),
	)
}

// --- Shared result shapes ---

type toolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func errorResult(format string, args ...any) (*mcp.CallToolResult, error) {
	return resultJSON(toolResult{Success: false, Message: fmt.Sprintf(format, args...)})
}

// --- Handlers ---

var stressSignalTypes = map[string]bool{
	"correction":        true,
	"frustration":       true,
	"explicit_negative": true,
}

type logStressArgs struct {
	SignalType string `json:"signal_type"`
	Context    string `json:"context"`
	Intensity  int    `json:"intensity"`
	SessionKey string `json:"session_key"`
}

func (s *Server) handleLogStress(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args logStressArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if !stressSignalTypes[args.SignalType] {
		return errorResult("signal_type must be correction, frustration, or explicit_negative")
	}
	if args.Context == "" {
		return errorResult("context is required")
	}

	intensity := clampInt(args.Intensity, 1, 5)
	id := s.st.AddLog(store.CategoryStress, map[string]any{
		"signal_type": args.SignalType,
		"context":     args.Context,
		"intensity":   intensity,
	}, args.SessionKey)
	if id < 0 {
		return errorResult("could not record stress signal")
	}

	s.publish("stress_logged", map[string]any{"signal_type": args.SignalType, "intensity": intensity})
	return resultJSON(toolResult{Success: true, Message: "Stress signal recorded. It will be analyzed in the next dream phase."})
}

type confessArgs struct {
	Area              string  `json:"area"`
	Confidence        float64 `json:"confidence"`
	AlternativeAction string  `json:"alternative_action"`
	SessionKey        string  `json:"session_key"`
}

type confessResult struct {
	toolResult
	UserMessage string `json:"user_message"`
}

func (s *Server) handleConfessUncertainty(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args confessArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if args.Area == "" {
		return errorResult("area is required")
	}

	confidence := clampFloat(args.Confidence, 0, 1)
	id := s.st.AddLog(store.CategoryConfession, map[string]any{
		"area":               args.Area,
		"confidence":         confidence,
		"alternative_action": args.AlternativeAction,
	}, args.SessionKey)
	if id < 0 {
		return errorResult("could not record confession")
	}

	userMessage := "Ask the user for more context before proceeding."
	if args.AlternativeAction != "" {
		userMessage = "Ask the user for more context, or take the safer alternative: " + args.AlternativeAction
	}

	s.publish("uncertainty_confessed", map[string]any{"area": args.Area, "confidence": confidence})
	return resultJSON(confessResult{
		toolResult:  toolResult{Success: true, Message: "Uncertainty recorded."},
		UserMessage: userMessage,
	})
}

var ethicalDomains = map[string]bool{
	"violence":     true,
	"deception":    true,
	"exploitation": true,
	"privacy":      true,
	"other":        true,
}

type refusalArgs struct {
	Domain         string `json:"domain"`
	RequestSummary string `json:"request_summary"`
	Reasoning      string `json:"reasoning"`
	SessionKey     string `json:"session_key"`
}

func (s *Server) handleLogEthicalRefusal(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args refusalArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if !ethicalDomains[args.Domain] {
		return errorResult("domain must be violence, deception, exploitation, privacy, or other")
	}
	if args.RequestSummary == "" || args.Reasoning == "" {
		return errorResult("request_summary and reasoning are required")
	}

	id := s.st.AddLog(store.CategoryEthics, map[string]any{
		"domain":          args.Domain,
		"request_summary": args.RequestSummary,
		"reasoning":       args.Reasoning,
	}, args.SessionKey)
	if id < 0 {
		return errorResult("could not record refusal")
	}

	s.publish("ethical_refusal_logged", map[string]any{"domain": args.Domain})
	return resultJSON(toolResult{Success: true, Message: "Ethical refusal recorded as a successful conscience operation."})
}

type guidanceArgs struct {
	Topic      string `json:"topic"`
	Advice     string `json:"advice"`
	Context    string `json:"context"`
	SessionKey string `json:"session_key"`
}

func (s *Server) handleLogGuidance(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args guidanceArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if args.Topic == "" || args.Advice == "" {
		return errorResult("topic and advice are required")
	}

	id := s.st.AddLog(store.CategoryGuidance, map[string]any{
		"topic":   args.Topic,
		"advice":  args.Advice,
		"context": args.Context,
	}, args.SessionKey)
	if id < 0 {
		return errorResult("could not record guidance")
	}

	s.publish("guidance_logged", map[string]any{"topic": args.Topic})
	return resultJSON(toolResult{Success: true, Message: "Guidance recorded."})
}

type dreamArgs struct {
	DaysToAnalyze int `json:"days_to_analyze"`
}

type dreamResult struct {
	toolResult
	LogCount       int    `json:"log_count"`
	Pruned         int    `json:"pruned"`
	AnalysisPrompt string `json:"analysis_prompt"`
	Instruction    string `json:"instruction"`
}

func (s *Server) handleDream(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dreamArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}

	res := dream.Plan(s.st, args.DaysToAnalyze)

	s.publish("dream_completed", map[string]any{"log_count": res.LogCount, "pruned": res.Pruned})
	return resultJSON(dreamResult{
		toolResult:     toolResult{Success: true, Message: fmt.Sprintf("Dream phase complete: %d logs analyzed, %d learnings pruned.", res.LogCount, res.Pruned)},
		LogCount:       res.LogCount,
		Pruned:         res.Pruned,
		AnalysisPrompt: res.Prompt,
		Instruction: "Follow the analysis instructions in the prompt, then save each proposed learning " +
			"with mind_save_learning and present all proposals to the user for approval.",
	})
}

type learningsResult struct {
	toolResult
	Approved          []store.Learning `json:"approved"`
	Pending           []store.Learning `json:"pending"`
	ApprovedFormatted string           `json:"approved_formatted"`
	PendingFormatted  string           `json:"pending_formatted"`
}

func (s *Server) handleGetLearnings(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	approved := s.st.GetApprovedLearnings()
	pending := s.st.GetPendingLearnings()

	return resultJSON(learningsResult{
		toolResult:        toolResult{Success: true, Message: fmt.Sprintf("%d approved, %d pending.", len(approved), len(pending))},
		Approved:          approved,
		Pending:           pending,
		ApprovedFormatted: store.FormatLearnings(approved),
		PendingFormatted:  store.FormatLearnings(pending),
	})
}

type learningIDArgs struct {
	ID int64 `json:"id"`
}

func (s *Server) handleApproveLearning(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args learningIDArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if args.ID <= 0 {
		return errorResult("id must be a positive integer")
	}

	s.st.ApproveLearning(args.ID)

	s.publish("learning_approved", map[string]any{"id": args.ID})
	return resultJSON(toolResult{Success: true, Message: fmt.Sprintf("Learning %d approved.", args.ID)})
}

func (s *Server) handleRejectLearning(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args learningIDArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if args.ID <= 0 {
		return errorResult("id must be a positive integer")
	}

	s.st.RejectLearning(args.ID)

	s.publish("learning_rejected", map[string]any{"id": args.ID})
	return resultJSON(toolResult{Success: true, Message: fmt.Sprintf("Learning %d rejected. It will not be re-proposed.", args.ID)})
}

type saveLearningArgs struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Rationale string `json:"rationale"`
}

type saveLearningResult struct {
	toolResult
	ID int64 `json:"id"`
}

func (s *Server) handleSaveLearning(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveLearningArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if args.Title == "" || args.Content == "" || args.Rationale == "" {
		return errorResult("title, content, and rationale are required")
	}

	id := s.st.AddLearning(args.Title, args.Content, args.Rationale, false)
	if id < 0 {
		return errorResult("could not save learning")
	}

	s.publish("learning_saved", map[string]any{"id": id, "title": args.Title})
	return resultJSON(saveLearningResult{
		toolResult: toolResult{Success: true, Message: fmt.Sprintf("Learning %q saved as pending; ask the user to approve or reject it.", args.Title)},
		ID:         id,
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
