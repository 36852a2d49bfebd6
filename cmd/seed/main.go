// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the dev org (dev-org-001) already exists. It then prints a bearer token for the dev
// user, signed with JWT_PRIVATE_KEY or with a generated key whose public half it also prints.
package main

import (
	"context"
	"crypto"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/config"
	"tenant-messaging-api/backend/internal/db"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	msgdomain "tenant-messaging-api/backend/internal/msg/domain"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	policydomain "tenant-messaging-api/backend/internal/policy/domain"
	policyrepo "tenant-messaging-api/backend/internal/policy/repository"
	"tenant-messaging-api/backend/internal/security"
	"tenant-messaging-api/backend/internal/store"
)

// devOrgPolicy adds an org rule on top of the built-in write policy.
const devOrgPolicy = `package msgapi.write

deny contains "Flows cannot be started for raw phone numbers on this organization" if {
	input.resource == "flow_start"
	input.raw_addresses
}
`

const (
	devUserID    = "dev-user-001"
	devOrgID     = "dev-org-001"
	devPolicyID  = "dev-policy-001"
	devClaimCode = "DEVCLAIM1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	st := store.NewPostgres(conn)

	existing, err := st.Orgs().GetOrganizationByID(ctx, devOrgID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev-org-001 exists). Skipping.")
	} else if err := seed(ctx, st); err != nil {
		log.Fatalf("seed: %v", err)
	} else if err := seedChannels(ctx, conn); err != nil {
		log.Fatalf("seed: %v", err)
	} else if err := policyrepo.NewPostgresRepository(conn).Create(ctx, &policydomain.Policy{
		ID:        devPolicyID,
		OrgID:     devOrgID,
		Rules:     devOrgPolicy,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Fatalf("create policy: %v", err)
	} else {
		log.Println("Seed completed successfully.")
		fmt.Printf("Relayer claim code: %s\n", devClaimCode)
	}

	key, err := signingKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	issuer, err := security.NewTokenIssuer(key, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	token, exp, err := issuer.Issue(devUserID, devOrgID)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("Dev token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)
}

// signingKey parses JWT_PRIVATE_KEY, or generates a throwaway ES256 key and prints its public half for
// JWT_PUBLIC_KEY so the server accepts the dev token.
func signingKey(configured string) (crypto.Signer, error) {
	if configured != "" {
		return security.ParsePrivateKey(configured)
	}
	key, err := security.GenerateKey()
	if err != nil {
		return nil, err
	}
	pub, err := security.EncodePublicKey(key.Public())
	if err != nil {
		return nil, err
	}
	fmt.Printf("JWT_PRIVATE_KEY not set; generated a dev key. Start the server with JWT_PUBLIC_KEY=\n%s", pub)
	return key, nil
}

func seed(ctx context.Context, st *store.Postgres) error {
	now := time.Now().UTC()
	return st.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Orgs().CreateOrganization(ctx, &orgdomain.Org{
			ID:        devOrgID,
			Name:      "Acme Dev",
			Status:    orgdomain.OrgStatusActive,
			Languages: []string{"eng", "fra"},
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("create org: %w", err)
		}

		if err := tx.Groups().Create(ctx, &contactdomain.Group{
			UUID: uuid.NewString(), OrgID: devOrgID, Name: "Subscribers", IsActive: true, CreatedBy: devUserID, CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		for _, label := range []string{"Joined", "Birthday"} {
			if err := tx.Fields().Create(ctx, &contactdomain.ContactField{
				OrgID:     devOrgID,
				Key:       contactdomain.MakeKey(label),
				Label:     label,
				ValueType: contactdomain.ValueTypeDatetime,
				IsActive:  true,
				CreatedBy: devUserID,
				CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("create field %s: %w", label, err)
			}
		}
		if err := tx.Labels().Create(ctx, &msgdomain.Label{
			UUID: uuid.NewString(), OrgID: devOrgID, Name: "Follow Up", IsActive: true, CreatedBy: devUserID, CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("create label: %w", err)
		}

		definition, err := json.Marshal(map[string]any{"nodes": []any{}})
		if err != nil {
			return err
		}
		if err := tx.Flows().Create(ctx, &flowdomain.Flow{
			UUID:       uuid.NewString(),
			OrgID:      devOrgID,
			Name:       "Registration",
			FlowType:   flowdomain.FlowTypeFlow,
			Definition: definition,
			Version:    1,
			IsActive:   true,
			CreatedBy:  devUserID,
			ModifiedBy: devUserID,
			CreatedAt:  now,
			ModifiedAt: now,
		}); err != nil {
			return fmt.Errorf("create flow: %w", err)
		}
		return nil
	})
}

// seedChannels registers a claimed US send channel for the dev org and an unclaimed relayer holding devClaimCode.
func seedChannels(ctx context.Context, conn *sql.DB) error {
	const insert = `INSERT INTO channels (uuid, org_id, name, address, country, channel_type, scheme, role, claim_code)
		VALUES ($1, $2, $3, $4, $5, $6, 'tel', $7, $8)`
	if _, err := conn.ExecContext(ctx, insert,
		uuid.NewString(), devOrgID, "Dev Android", "+12065550100", "US", string(channeldomain.ChannelTypeAndroid),
		channeldomain.RoleSend+channeldomain.RoleReceive, nil); err != nil {
		return fmt.Errorf("create send channel: %w", err)
	}
	if _, err := conn.ExecContext(ctx, insert,
		uuid.NewString(), nil, "", "", "RW", string(channeldomain.ChannelTypeAndroid),
		channeldomain.RoleSend+channeldomain.RoleReceive, devClaimCode); err != nil {
		return fmt.Errorf("create relayer: %w", err)
	}
	return nil
}
