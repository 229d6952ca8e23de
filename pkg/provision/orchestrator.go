/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package provision

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/faroshq/idp-bootstrap/pkg/appconfig"
	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
	"github.com/faroshq/idp-bootstrap/pkg/issuer"
)

// DefaultGroupClaimValue matches every group the user belongs to.
const DefaultGroupClaimValue = ".*"

// Config is everything a run needs, resolved by the caller.
type Config struct {
	// CredentialsPath is the credentials file location.
	CredentialsPath string
	// ConfigPath is the application config file. It is created when missing.
	ConfigPath string
	// PropertyPrefix namespaces the provisioning keys. Defaults to
	// DefaultPropertyPrefix.
	PropertyPrefix string

	// Organization supplies the organization request when one must be created.
	Organization RequestFunc
	// Application is the application to create or reuse.
	Application idp.ApplicationRequest

	AuthorizationServerID string
	// IssuerURI overrides the issuer derived from the organization URL.
	IssuerURI string

	// GroupClaimName is the claim to add; empty skips the claim stage.
	GroupClaimName  string
	GroupClaimValue string

	// VerifyIssuer fetches the issuer's discovery document after provisioning.
	VerifyIssuer bool

	// LookupEnv overlays credentials from the environment when set.
	LookupEnv func(string) (string, bool)
}

// Result summarizes a run.
type Result struct {
	OrgURL        string
	OrgCreated    bool
	ClientID      string
	AppCreated    bool
	ConfigWritten bool
	// AuthorizationServerID is the server the issuer and the claim refer to.
	AuthorizationServerID string
	ClaimStatus           ClaimStatus
	// ClaimError is set when ClaimStatus is ClaimFailed.
	ClaimError error
	Issuer     string
	// Endpoints is set when the issuer was verified.
	Endpoints *issuer.Endpoints
	// IssuerError is set when issuer verification failed.
	IssuerError error
}

// CredentialStore loads and saves credentials.
type CredentialStore interface {
	Load() (credentials.Credentials, error)
	CredentialSaver
}

// IssuerVerifier checks an issuer's discovery document.
type IssuerVerifier interface {
	Verify(ctx context.Context, issuerURL string) (issuer.Endpoints, error)
}

// Orchestrator runs the provisioning stages in order: organization,
// application config, claim. Every stage is a no-op when its result is
// already recorded.
type Orchestrator struct {
	Config   Config
	Clients  Clients
	Store    CredentialStore
	Verifier IssuerVerifier
}

// NewOrchestrator returns an Orchestrator storing credentials at
// cfg.CredentialsPath.
func NewOrchestrator(cfg Config, clients Clients, verifier IssuerVerifier) *Orchestrator {
	return &Orchestrator{
		Config:   cfg,
		Clients:  clients,
		Store:    credentials.NewStore(cfg.CredentialsPath),
		Verifier: verifier,
	}
}

// Run provisions what is missing. Claim and issuer check failures are
// reported in the Result; every other failure aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	logger := klog.FromContext(ctx)
	var res Result

	creds, err := o.Store.Load()
	if err != nil {
		return res, fmt.Errorf("loading credentials: %w", err)
	}
	if o.Config.LookupEnv != nil {
		creds = credentials.WithEnv(creds, o.Config.LookupEnv)
	}

	orgs := &OrgProvisioner{Creator: lazyCreator(o.Clients.Registration), Store: o.Store}
	creds, res.OrgCreated, err = orgs.Ensure(ctx, creds, o.Config.Organization)
	res.OrgURL = creds.BaseURL
	if err != nil {
		return res, err
	}
	logger.V(2).Info("Organization ready", "orgURL", creds.BaseURL, "created", res.OrgCreated)

	api, err := o.Clients.Organization(creds)
	if err != nil {
		return res, fmt.Errorf("connecting to organization %s: %w", creds.BaseURL, err)
	}

	src, err := appconfig.Load(o.Config.ConfigPath)
	if err != nil {
		return res, err
	}
	logger.V(4).Info("Loaded application config", "path", o.Config.ConfigPath, "format", src.Format())

	serverID := idp.ClaimSpec{AuthorizationServerID: o.Config.AuthorizationServerID}.ServerID()
	res.AuthorizationServerID = serverID
	res.Issuer = o.Config.IssuerURI
	if res.Issuer == "" {
		res.Issuer = issuer.Issuer(creds.BaseURL, serverID)
	}

	apps := &AppProvisioner{Creator: api, Prefix: o.Config.PropertyPrefix}
	app, err := apps.Ensure(ctx, src, o.Config.Application, res.Issuer)
	if err != nil {
		return res, err
	}
	res.ClientID = app.ClientID
	res.AppCreated = app.Created
	if v, ok := src.Get(KeysFor(o.Config.PropertyPrefix).Issuer); ok && strings.TrimSpace(v) != "" {
		res.Issuer = v
	}
	logger.V(2).Info("Application ready", "name", o.Config.Application.Name, "clientID", app.ClientID, "created", app.Created)

	if app.Changed {
		if err := appconfig.Write(src, o.Config.ConfigPath); err != nil {
			return res, fmt.Errorf("writing application config: %w", err)
		}
		res.ConfigWritten = true
		logger.V(2).Info("Wrote application config", "path", o.Config.ConfigPath)
	}

	res.ClaimStatus, res.ClaimError = o.installClaim(ctx, api, serverID)

	if o.Config.VerifyIssuer && o.Verifier != nil {
		ep, err := o.Verifier.Verify(ctx, res.Issuer)
		if err != nil {
			logger.V(1).Info("Issuer check failed", "issuer", res.Issuer, "err", err)
			res.IssuerError = err
		} else {
			res.Endpoints = &ep
		}
	}

	return res, nil
}

func (o *Orchestrator) installClaim(ctx context.Context, api ClaimAttacher, serverID string) (ClaimStatus, error) {
	logger := klog.FromContext(ctx)
	if o.Config.GroupClaimName == "" {
		return ClaimSkipped, nil
	}

	value := o.Config.GroupClaimValue
	if value == "" {
		value = DefaultGroupClaimValue
	}
	installer := &ClaimInstaller{Attacher: api}
	status, err := installer.Install(ctx, idp.ClaimSpec{
		Name:                  o.Config.GroupClaimName,
		ValueExpression:       value,
		AuthorizationServerID: serverID,
	})
	switch status {
	case ClaimAlreadyPresent:
		logger.V(1).Info("Claim already exists", "claim", o.Config.GroupClaimName, "authorizationServer", serverID)
	case ClaimFailed:
		logger.V(1).Info("Failed to add claim, continuing", "claim", o.Config.GroupClaimName, "authorizationServer", serverID, "err", err)
	default:
		logger.V(2).Info("Added claim", "claim", o.Config.GroupClaimName, "authorizationServer", serverID)
	}
	return status, err
}

// lazyCreator defers building the registration client until an
// organization has to be created.
type lazyCreator func() (OrganizationCreator, error)

func (f lazyCreator) CreateOrganization(ctx context.Context, req idp.OrganizationRequest) (idp.OrganizationResult, error) {
	c, err := f()
	if err != nil {
		return idp.OrganizationResult{}, err
	}
	return c.CreateOrganization(ctx, req)
}
