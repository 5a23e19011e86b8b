package services

import (
	"context"

	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
)

const (
	HealthUp   = "up"
	HealthDown = "down"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type LivenessProbe interface {
	IsHealthy(ctx context.Context) bool
}

type PayloadProbe interface {
	Validate(ctx context.Context) bool
	AssetInfo() icp.AssetInfo
}

type ComponentHealth struct {
	Status string `json:"status"`
}

type WasmAssetsHealth struct {
	Status   string `json:"status"`
	WasmSize int    `json:"wasm_size,omitempty"`
	WasmHash string `json:"wasm_hash,omitempty"`
}

type HealthInfo struct {
	Database   ComponentHealth  `json:"database"`
	ICPAgent   ComponentHealth  `json:"icp_agent"`
	WasmAssets WasmAssetsHealth `json:"wasm_assets"`
}

type HealthReport struct {
	Status string     `json:"status"`
	Info   HealthInfo `json:"info"`
}

// Healthy reports whether every component is up
func (r HealthReport) Healthy() bool {
	return r.Status == "ok"
}

type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	db      Pinger
	agent   LivenessProbe
	payload PayloadProbe
}

func NewHealthService(db Pinger, agent LivenessProbe, payload PayloadProbe) HealthService {
	return &healthService{db: db, agent: agent, payload: payload}
}

func upDown(ok bool) string {
	if ok {
		return HealthUp
	}
	return HealthDown
}

// Check probes each component independently; one failing probe never hides the others
func (h *healthService) Check(ctx context.Context) HealthReport {
	dbUp := h.db.Ping(ctx) == nil
	agentUp := h.agent.IsHealthy(ctx)
	payloadUp := h.payload.Validate(ctx)

	wasm := WasmAssetsHealth{Status: upDown(payloadUp)}
	if payloadUp {
		info := h.payload.AssetInfo()
		wasm.WasmSize = info.WasmSize
		wasm.WasmHash = info.WasmHash
	}

	status := "ok"
	if !dbUp || !agentUp || !payloadUp {
		status = "error"
	}
	return HealthReport{
		Status: status,
		Info: HealthInfo{
			Database:   ComponentHealth{Status: upDown(dbUp)},
			ICPAgent:   ComponentHealth{Status: upDown(agentUp)},
			WasmAssets: wasm,
		},
	}
}
