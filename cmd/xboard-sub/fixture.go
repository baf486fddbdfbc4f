package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// previewFixture 描述 preview --fixture 使用的 YAML 文件：一个用户、可选套餐和若干节点。
type previewFixture struct {
	User    fixtureUser     `yaml:"user"`
	Plan    *fixturePlan    `yaml:"plan"`
	Servers []fixtureServer `yaml:"servers"`
}

type fixtureUser struct {
	Email      string `yaml:"email"`
	UUID       string `yaml:"uuid"`
	Token      string `yaml:"token"`
	GroupID    int64  `yaml:"group_id"`
	TransferGB int64  `yaml:"transfer_gb"`
	UsedGB     int64  `yaml:"used_gb"`
	Expire     string `yaml:"expire"`
	Banned     bool   `yaml:"banned"`
}

type fixturePlan struct {
	Name               string `yaml:"name"`
	ResetTrafficMethod *int64 `yaml:"reset_traffic_method"`
}

type fixtureServer struct {
	Type     string         `yaml:"type"`
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     string         `yaml:"port"`
	Groups   []any          `yaml:"groups"`
	Sort     int64          `yaml:"sort"`
	Hidden   bool           `yaml:"hidden"`
	Online   bool           `yaml:"online"`
	Settings map[string]any `yaml:"settings"`
}

func loadFixture(path string) (*previewFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f previewFixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if f.User.Token == "" {
		return nil, fmt.Errorf("fixture user.token is required / fixture 缺少 user.token")
	}
	if f.User.Email == "" {
		f.User.Email = "preview@example.com"
	}
	return &f, nil
}

// seed 把 fixture 写入仓储，返回用户 token。
func (f *previewFixture) seed(ctx context.Context, store repository.Store, loc *time.Location, now time.Time) (string, error) {
	user := &repository.User{
		UUID:           f.User.UUID,
		Token:          f.User.Token,
		Email:          f.User.Email,
		GroupID:        f.User.GroupID,
		TransferEnable: f.User.TransferGB * bytesPerGiB,
		D:              f.User.UsedGB * bytesPerGiB,
		Banned:         f.User.Banned,
	}
	expiredAt, err := parseExpireDate(f.User.Expire, loc)
	if err != nil {
		return "", err
	}
	user.ExpiredAt = expiredAt

	if f.Plan != nil {
		plan, err := store.Plans().Create(ctx, &repository.Plan{
			Name:               f.Plan.Name,
			GroupID:            f.User.GroupID,
			TransferEnable:     user.TransferEnable,
			ResetTrafficMethod: f.Plan.ResetTrafficMethod,
		})
		if err != nil {
			return "", fmt.Errorf("seed plan: %w", err)
		}
		user.PlanID = plan.ID
	}
	if _, err := store.Users().Create(ctx, user); err != nil {
		return "", fmt.Errorf("seed user: %w", err)
	}

	for i, s := range f.Servers {
		groups, err := json.Marshal(s.Groups)
		if err != nil {
			return "", fmt.Errorf("server %d groups: %w", i, err)
		}
		settings := []byte("{}")
		if len(s.Settings) > 0 {
			if settings, err = json.Marshal(s.Settings); err != nil {
				return "", fmt.Errorf("server %d settings: %w", i, err)
			}
		}
		record := &repository.Server{
			Type:     s.Type,
			Name:     s.Name,
			Host:     s.Host,
			Port:     s.Port,
			GroupIDs: groups,
			Show:     !s.Hidden,
			Sort:     s.Sort,
			Settings: settings,
		}
		if s.Online {
			record.LastHeartbeatAt = now.Unix()
		}
		if err := store.Servers().Create(ctx, record); err != nil {
			return "", fmt.Errorf("seed server %d: %w", i, err)
		}
	}
	return user.Token, nil
}
