package publishers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryAWSAndPubSub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: queue
    type: sqs
    sqs:
      uri: https://sqs.us-east-1.amazonaws.com/1/probe
      region: us-east-1
  - id: topic
    type: SNS
    sns:
      topic_arn: arn:aws:sns:us-east-1:1:probe
      region: us-east-1
      endpoint: http://localhost:4566
      access_key_id: test
      secret_access_key: test
  - id: gcp
    type: pubsub
    pubsub:
      project_id: demo
      topic: outcomes
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	topic, ok := reg.ByID("topic")
	if !ok || topic.Type != TypeSNS {
		t.Fatalf("expected sns publisher, got %#v", topic)
	}
	if topic.SNS.Region != "us-east-1" || topic.SNS.Endpoint != "http://localhost:4566" || topic.SNS.AccessKeyID != "test" {
		t.Fatalf("inline aws settings not decoded: %#v", topic.SNS)
	}
	gcp, _ := reg.ByID("gcp")
	if gcp.PubSub == nil || gcp.PubSub.Topic != "outcomes" {
		t.Fatalf("unexpected pubsub config %#v", gcp.PubSub)
	}
}

func TestValidatePublisherConfigAWSCredentialsPair(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "q",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL:  "https://example.com/q",
			AWSAccess: AWSAccess{Region: "us-east-1", AccessKeyID: "only-id"},
		},
	})
	if err == nil {
		t.Fatalf("expected error when secret key is missing")
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers": [
  {"id": " topic ", "type": "sns", "sns": {"topic_arn": "arn:aws:sns:us-east-1:1:probe", "region": "us-east-1"}},
  {"id": "gcp", "type": "pubsub", "enabled": false, "pubsub": {"project_id": "demo", "topic": "outcomes", "credentials_file": " /tmp/key.json "}}
]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(reg.All()))
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "topic" || enabled[0].SNS.Region != "us-east-1" {
		t.Fatalf("unexpected enabled publishers %#v", enabled)
	}
	gcp, ok := reg.ByID("gcp")
	if !ok || gcp.PubSub.CredentialsFile != "/tmp/key.json" {
		t.Fatalf("unexpected pubsub config %#v", gcp.PubSub)
	}
}

func TestLoadRegistryRejectsDuplicateIDsAndUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	dup := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    http: {url: "https://example.com/a"}
  - id: hook
    type: http
    http: {url: "https://example.com/b"}
`
	if err := os.WriteFile(dup, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	toml := filepath.Join(dir, "publishers.toml")
	if err := os.WriteFile(toml, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(toml); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestValidatePublisherConfigPerType(t *testing.T) {
	cases := map[string]PublisherConfig{
		"sqs without region": {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://example.com/q"}},
		"sns without block":  {ID: "t", Type: TypeSNS},
		"sns without topic":  {ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSAccess: AWSAccess{Region: "us-east-1"}}},
		"sns secret only": {ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{
			TopicARN:  "arn:aws:sns:us-east-1:1:probe",
			AWSAccess: AWSAccess{Region: "us-east-1", SecretAccessKey: "only-secret"},
		}},
		"pubsub without project": {ID: "g", Type: TypePubSub, PubSub: &PubSubPublisherConfig{Topic: "outcomes"}},
		"pubsub without topic":   {ID: "g", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "demo"}},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(sanitizePublisherConfig(cfg)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	ok := PublisherConfig{ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{
		TopicARN:  "arn:aws:sns:us-east-1:1:probe",
		AWSAccess: AWSAccess{Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "secret"},
	}}
	if err := validatePublisherConfig(ok); err != nil {
		t.Fatalf("valid sns config rejected: %v", err)
	}
}

func TestPublisherForAppliesHTTPDefaults(t *testing.T) {
	pub, err := DefaultRegistry().PublisherFor(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: " HTTP ",
		HTTP: &HTTPPublisherConfig{URL: " https://example.com/outcomes "},
	}, nil)
	if err != nil {
		t.Fatalf("PublisherFor: %v", err)
	}
	hp, ok := pub.(*httpPublisher)
	if !ok {
		t.Fatalf("expected http publisher, got %T", pub)
	}
	if hp.method != httpDefaultMethod || hp.url != "https://example.com/outcomes" {
		t.Fatalf("defaults not applied: method=%q url=%q", hp.method, hp.url)
	}
	if got := hp.client.GetClient().Timeout; got != httpDefaultTimeoutSeconds*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}
