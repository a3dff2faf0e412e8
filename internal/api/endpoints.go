package api

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (Tokens, error) {
	return Do[Tokens](ctx, c, http.MethodPost, "/token/", creds)
}

// RefreshTokens obtains a fresh access token from a refresh token.
func (c *Client) RefreshTokens(ctx context.Context, refresh string) (Tokens, error) {
	tokens, err := Do[Tokens](ctx, c, http.MethodPost, "/token/refresh/", map[string]string{"refresh": refresh})
	if err != nil {
		return Tokens{}, err
	}
	if tokens.Refresh == "" {
		tokens.Refresh = refresh
	}
	return tokens, nil
}

// User returns the identity and permissions of the token holder.
func (c *Client) User(ctx context.Context) (User, error) {
	return Do[User](ctx, c, http.MethodGet, "/user/", nil)
}

// Projects lists every project the user can read, with document summaries.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	return Do[[]Project](ctx, c, http.MethodGet, "/projects/", nil)
}

// Project returns a single project.
func (c *Client) Project(ctx context.Context, projectID int) (Project, error) {
	return Do[Project](ctx, c, http.MethodGet, projectPath(projectID), nil)
}

// DeleteProject deletes a project and all of its documents.
func (c *Client) DeleteProject(ctx context.Context, projectID int) error {
	_, err := Do[Message](ctx, c, http.MethodDelete, projectPath(projectID), nil)
	return err
}

// Document returns a document with its text and tagged markup.
func (c *Client) Document(ctx context.Context, projectID, documentID int) (Document, error) {
	return Do[Document](ctx, c, http.MethodGet, documentPath(projectID, documentID), nil)
}

// DeleteDocument deletes a document.
func (c *Client) DeleteDocument(ctx context.Context, projectID, documentID int) error {
	_, err := Do[Message](ctx, c, http.MethodDelete, documentPath(projectID, documentID), nil)
	return err
}

// CreateDocument submits a document; tagging happens in the background.
func (c *Client) CreateDocument(ctx context.Context, doc NewDocument) (CreatedDocument, error) {
	return Do[CreatedDocument](ctx, c, http.MethodPost, "/create/document/", doc)
}

// CreateProject submits a project.
func (c *Client) CreateProject(ctx context.Context, project NewProject) (CreatedProject, error) {
	if project.CustomPermissions == nil {
		project.CustomPermissions = map[string]Permission{}
	}
	return Do[CreatedProject](ctx, c, http.MethodPost, "/create/project/", project)
}

// Tag runs entity recognition on text and returns displaCy markup.
func (c *Client) Tag(ctx context.Context, text string) (TaggedDocument, error) {
	return Do[TaggedDocument](ctx, c, http.MethodPost, "/tag/", map[string]string{"text": text})
}

// Events returns the most recent project and document activity.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	return Do[[]Event](ctx, c, http.MethodGet, "/events/", nil)
}

func projectPath(projectID int) string {
	return fmt.Sprintf("/project/%d/", projectID)
}

func documentPath(projectID, documentID int) string {
	return fmt.Sprintf("/project/%d/document/%d/", projectID, documentID)
}
