package remote

// Query is a GraphQL request body.
type Query struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when the server did not set one.
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// Response is a GraphQL response envelope.
type Response[T any] struct {
	Data   *T             `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

const loginMutation = `mutation Login($input: AuthInputType) {
  login(input: $input) {
    token
  }
}`

const userQuery = `query User($id: ID) {
  user(id: $id) {
    id
    name
    email
    avatar
    wallet {
      id
      toOffer
      received
      balance
    }
  }
}`

type loginData struct {
	Login *struct {
		Token string `json:"token"`
	} `json:"login"`
}

type userData struct {
	User *struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Avatar string `json:"avatar"`
		Wallet struct {
			ID       string `json:"id"`
			ToOffer  int64  `json:"toOffer"`
			Received int64  `json:"received"`
			Balance  int64  `json:"balance"`
		} `json:"wallet"`
	} `json:"user"`
}
