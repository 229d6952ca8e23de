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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"

	"github.com/faroshq/idp-bootstrap/pkg/appconfig"
	"github.com/faroshq/idp-bootstrap/pkg/cli/prompt"
	"github.com/faroshq/idp-bootstrap/pkg/credentials"
	"github.com/faroshq/idp-bootstrap/pkg/idp"
	"github.com/faroshq/idp-bootstrap/pkg/issuer"
	"github.com/faroshq/idp-bootstrap/pkg/provision"
	"github.com/faroshq/idp-bootstrap/pkg/util/fsutil"
	utilhttp "github.com/faroshq/idp-bootstrap/pkg/util/http"
)

const (
	// EnvAPIBaseURL overrides the default registration endpoint.
	EnvAPIBaseURL = "IDP_BOOTSTRAP_API_BASE_URL"
	// DefaultAPIBaseURL is the registration endpoint for new organizations.
	DefaultAPIBaseURL = "https://start.okta.dev/"
	// DefaultRedirectURI is the login callback of a local Spring Boot app.
	DefaultRedirectURI = "http://localhost:8080/login/oauth2/code/okta"
	// DefaultGroupClaimName is the claim carrying the user's groups.
	DefaultGroupClaimName = "groups"
)

var setupExample = `  # Register an organization and configure the project in the current directory
  idp-bootstrap setup

  # Unattended, e.g. in CI
  idp-bootstrap setup --non-interactive --first-name Jane --last-name Doe \
    --email jane@example.com --organization Acme

  # Single page application using a properties file
  idp-bootstrap setup --app-type browser --config-file config/app.properties \
    --redirect-uri http://localhost:4200/callback

  # Reuse an existing organization
  OKTA_CLIENT_ORGURL=https://dev-123456.okta.com OKTA_CLIENT_TOKEN=... idp-bootstrap setup`

// SetupOptions contains the options for the setup command.
type SetupOptions struct {
	Streams genericclioptions.IOStreams

	APIBaseURL      string
	CredentialsFile string
	ProjectDir      string
	ConfigFile      string
	PropertyPrefix  string

	FirstName    string
	LastName     string
	Email        string
	Organization string

	AppName               string
	AppType               string
	RedirectURIs          []string
	AuthorizationServerID string
	IssuerURI             string

	GroupClaimName  string
	GroupClaimValue string

	VerifyIssuer   bool
	NonInteractive bool

	appType idp.AppType
}

// NewSetupOptions creates a new SetupOptions.
func NewSetupOptions(streams genericclioptions.IOStreams) *SetupOptions {
	return &SetupOptions{
		Streams:               streams,
		ProjectDir:            ".",
		PropertyPrefix:        provision.DefaultPropertyPrefix,
		AppType:               string(idp.AppTypeWeb),
		RedirectURIs:          []string{DefaultRedirectURI},
		AuthorizationServerID: idp.DefaultAuthorizationServerID,
		GroupClaimName:        DefaultGroupClaimName,
		GroupClaimValue:       provision.DefaultGroupClaimValue,
	}
}

func newSetupCommand(streams genericclioptions.IOStreams) *cobra.Command {
	opts := NewSetupOptions(streams)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create an organization and OIDC application and record them in the project config",
		Long: `Create an identity provider organization and OIDC application for a project.

This command will:

- Register a new organization, unless the credentials file or the
  OKTA_CLIENT_ORGURL and OKTA_CLIENT_TOKEN environment variables already name one
- Save the organization URL and API token to ~/.okta/okta.yaml
- Create an OIDC application named after the project, or reuse one with the same name
- Add the issuer, client id and client secret to the project's application.yml
  or application.properties, keeping all other content as it is
- Add a groups claim to the authorization server`,
		Example:      setupExample,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(args); err != nil {
				return err
			}

			if err := opts.Validate(); err != nil {
				return err
			}

			return opts.Run(cmd.Context())
		},
	}
	opts.AddCmdFlags(cmd)

	return cmd
}

// AddCmdFlags adds command line flags.
func (o *SetupOptions) AddCmdFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.APIBaseURL, "api-base-url", o.APIBaseURL, "Registration endpoint for new organizations (default $"+EnvAPIBaseURL+" or "+DefaultAPIBaseURL+")")
	cmd.Flags().StringVar(&o.CredentialsFile, "credentials-file", o.CredentialsFile, "Credentials file (default ~/.okta/okta.yaml)")
	cmd.Flags().StringVar(&o.ProjectDir, "project-dir", o.ProjectDir, "Project directory")
	cmd.Flags().StringVar(&o.ConfigFile, "config-file", o.ConfigFile, "Application config file (default: src/main/resources/application.{yml,yaml,properties} in the project directory)")
	cmd.Flags().StringVar(&o.PropertyPrefix, "property-prefix", o.PropertyPrefix, "Prefix of the keys written to the application config")

	cmd.Flags().StringVar(&o.FirstName, "first-name", o.FirstName, "First name for a new organization")
	cmd.Flags().StringVar(&o.LastName, "last-name", o.LastName, "Last name for a new organization")
	cmd.Flags().StringVar(&o.Email, "email", o.Email, "Email address for a new organization")
	cmd.Flags().StringVar(&o.Organization, "organization", o.Organization, "Company or organization name for a new organization")

	cmd.Flags().StringVar(&o.AppName, "app-name", o.AppName, "OIDC application name (default: project directory name)")
	cmd.Flags().StringVar(&o.AppType, "app-type", o.AppType, fmt.Sprintf("OIDC application type, one of %v", idp.AppTypes))
	cmd.Flags().StringSliceVar(&o.RedirectURIs, "redirect-uri", o.RedirectURIs, "OAuth redirect URIs of the application")
	cmd.Flags().StringVar(&o.AuthorizationServerID, "authorization-server-id", o.AuthorizationServerID, "Authorization server used for the issuer and the groups claim")
	cmd.Flags().StringVar(&o.IssuerURI, "issuer-uri", o.IssuerURI, "Issuer URI to record (default: <org URL>/oauth2/<authorization server id>)")

	cmd.Flags().StringVar(&o.GroupClaimName, "group-claim-name", o.GroupClaimName, "Name of the groups claim to add; empty skips it")
	cmd.Flags().StringVar(&o.GroupClaimValue, "group-claim-value", o.GroupClaimValue, "Regular expression selecting the groups included in the claim")

	cmd.Flags().BoolVar(&o.VerifyIssuer, "verify-issuer", o.VerifyIssuer, "Fetch the issuer's OIDC discovery document after provisioning")
	cmd.Flags().BoolVar(&o.NonInteractive, "non-interactive", o.NonInteractive, "Never prompt; fail when a required value is missing")
}

// Complete fills in defaults. A .env file in the project directory is loaded
// first; variables already set in the environment win.
func (o *SetupOptions) Complete(args []string) error {
	if err := godotenv.Load(filepath.Join(o.ProjectDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if o.APIBaseURL == "" {
		o.APIBaseURL = os.Getenv(EnvAPIBaseURL)
	}
	if o.APIBaseURL == "" {
		o.APIBaseURL = DefaultAPIBaseURL
	}

	if o.CredentialsFile == "" {
		path, err := credentials.DefaultPath()
		if err != nil {
			return err
		}
		o.CredentialsFile = path
	}

	if o.ConfigFile == "" {
		o.ConfigFile = appconfig.Locate(o.ProjectDir)
	}

	if o.AppName == "" {
		abs, err := filepath.Abs(o.ProjectDir)
		if err != nil {
			return fmt.Errorf("resolving project directory: %w", err)
		}
		o.AppName = filepath.Base(abs)
	}

	return nil
}

// Validate validates the options.
func (o *SetupOptions) Validate() error {
	appType, err := idp.ParseAppType(o.AppType)
	if err != nil {
		return err
	}
	o.appType = appType

	if strings.TrimSpace(o.PropertyPrefix) == "" {
		return fmt.Errorf("--property-prefix must not be empty")
	}
	if o.appType == idp.AppTypeService {
		o.RedirectURIs = nil
	}
	return provision.ValidateApplicationRequest(o.applicationRequest())
}

func (o *SetupOptions) applicationRequest() idp.ApplicationRequest {
	return idp.ApplicationRequest{
		Name:         o.AppName,
		Type:         o.appType,
		RedirectURIs: o.RedirectURIs,
	}
}

// Run provisions what is missing and reports the outcome.
func (o *SetupOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resolver := prompt.NewResolver(o.Streams)
	if o.NonInteractive {
		resolver.Interactive = false
	}

	cfg := provision.Config{
		CredentialsPath:       o.CredentialsFile,
		ConfigPath:            o.ConfigFile,
		PropertyPrefix:        o.PropertyPrefix,
		Organization:          o.organizationRequest(resolver),
		Application:           o.applicationRequest(),
		AuthorizationServerID: o.AuthorizationServerID,
		IssuerURI:             o.IssuerURI,
		GroupClaimName:        o.GroupClaimName,
		GroupClaimValue:       o.GroupClaimValue,
		VerifyIssuer:          o.VerifyIssuer,
		LookupEnv:             os.LookupEnv,
	}
	httpClient := utilhttp.NewClient()
	clients := &provision.HTTPClients{APIBaseURL: o.APIBaseURL, HTTPClient: httpClient}
	orchestrator := provision.NewOrchestrator(cfg, clients, &issuer.Verifier{HTTPClient: httpClient})

	res, err := orchestrator.Run(ctx)
	if err != nil {
		var ioErr *fsutil.IOError
		if res.OrgCreated && errors.As(err, &ioErr) && ioErr.Path == o.CredentialsFile {
			_, _ = fmt.Fprintf(o.Streams.ErrOut, "Organization %s was created but its credentials could not be saved to %s.\n", res.OrgURL, o.CredentialsFile)
		}
		return err
	}

	o.printResult(res)
	return nil
}

func (o *SetupOptions) organizationRequest(resolver *prompt.Resolver) provision.RequestFunc {
	return func(context.Context) (idp.OrganizationRequest, error) {
		if resolver.Interactive {
			_, _ = fmt.Fprintln(o.Streams.Out, "Registering for a new developer account")
		}
		var req idp.OrganizationRequest
		fields := []struct {
			field prompt.Field
			dst   *string
		}{
			{prompt.Field{Label: "First name", Flag: "first-name", Value: o.FirstName}, &req.FirstName},
			{prompt.Field{Label: "Last name", Flag: "last-name", Value: o.LastName}, &req.LastName},
			{prompt.Field{Label: "Email address", Flag: "email", Value: o.Email}, &req.Email},
			{prompt.Field{Label: "Company", Flag: "organization", Value: o.Organization}, &req.Organization},
		}
		for _, f := range fields {
			v, err := resolver.Resolve(f.field)
			if err != nil {
				return idp.OrganizationRequest{}, err
			}
			*f.dst = v
		}
		return req, nil
	}
}

func (o *SetupOptions) printResult(res provision.Result) {
	out := o.Streams.Out
	if res.OrgCreated {
		_, _ = fmt.Fprintf(out, "Created organization %s\n", res.OrgURL)
		_, _ = fmt.Fprintf(out, "Saved credentials to %s\n", o.CredentialsFile)
	} else {
		_, _ = fmt.Fprintf(out, "Using organization %s\n", res.OrgURL)
	}

	if res.AppCreated {
		_, _ = fmt.Fprintf(out, "Created OIDC application %q, client id: %s\n", o.AppName, res.ClientID)
	} else {
		_, _ = fmt.Fprintf(out, "Using OIDC application client id: %s\n", res.ClientID)
	}

	if res.ConfigWritten {
		_, _ = fmt.Fprintf(out, "Updated %s\n", o.ConfigFile)
	} else {
		_, _ = fmt.Fprintf(out, "%s is up to date\n", o.ConfigFile)
	}

	switch res.ClaimStatus {
	case provision.ClaimInstalled:
		_, _ = fmt.Fprintf(out, "Added claim %q to authorization server %q\n", o.GroupClaimName, res.AuthorizationServerID)
	case provision.ClaimAlreadyPresent:
		_, _ = fmt.Fprintf(out, "Claim %q already exists on authorization server %q\n", o.GroupClaimName, res.AuthorizationServerID)
	case provision.ClaimFailed:
		_, _ = fmt.Fprintf(o.Streams.ErrOut, "Warning: %v\n", res.ClaimError)
	}

	_, _ = fmt.Fprintf(out, "Issuer: %s\n", res.Issuer)
	if res.IssuerError != nil {
		_, _ = fmt.Fprintf(o.Streams.ErrOut, "Warning: issuer %s could not be verified: %v\n", res.Issuer, res.IssuerError)
	}
	if ep := res.Endpoints; ep != nil {
		_, _ = fmt.Fprintf(out, "  authorization endpoint: %s\n", ep.AuthURL)
		_, _ = fmt.Fprintf(out, "  token endpoint:         %s\n", ep.TokenURL)
		if o.appType != idp.AppTypeService && len(o.RedirectURIs) > 0 {
			_, _ = fmt.Fprintf(out, "Try logging in: %s\n", issuer.LoginURL(*ep, res.ClientID, o.RedirectURIs[0]))
		}
	}
}
