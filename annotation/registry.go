package annotation

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Reader provides the annotations declared on a controller and on one of
// its actions. The returned values may be of any annotation type, callers
// pick the ones they understand.
type Reader interface {
	ControllerAnnotations(controller string) []interface{}
	ActionAnnotations(controller, action string) []interface{}
}

type actionKey struct {
	controller string
	action     string
}

// Registry is an in-memory Reader. It is populated at startup and must not be
// changed after it was passed to the request processing.
type Registry struct {
	controllers map[string][]interface{}
	actions     map[actionKey][]interface{}
}

// Document is the YAML/JSON representation of the declared annotations.
//
//	controllers:
//	  blog:
//	    annotations:
//	      - pjax: {filter: true}
//	    actions:
//	      show:
//	        annotations:
//	          - pjax: {version: "2"}
type Document struct {
	Controllers map[string]ControllerDoc `json:"controllers"`
}

type ControllerDoc struct {
	Annotations []map[string]map[string]interface{} `json:"annotations"`
	Actions     map[string]ActionDoc               `json:"actions"`
}

type ActionDoc struct {
	Annotations []map[string]map[string]interface{} `json:"annotations"`
}

// Unknown holds a declared annotation that has no specific type.
type Unknown struct {
	Name   string
	Values map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{
		controllers: make(map[string][]interface{}),
		actions:     make(map[actionKey][]interface{}),
	}
}

// AddController appends annotations to a controller.
func (r *Registry) AddController(controller string, a ...interface{}) *Registry {
	r.controllers[controller] = append(r.controllers[controller], a...)
	return r
}

// AddAction appends annotations to an action of a controller.
func (r *Registry) AddAction(controller, action string, a ...interface{}) *Registry {
	k := actionKey{controller, action}
	r.actions[k] = append(r.actions[k], a...)
	return r
}

func (r *Registry) ControllerAnnotations(controller string) []interface{} {
	return r.controllers[controller]
}

func (r *Registry) ActionAnnotations(controller, action string) []interface{} {
	return r.actions[actionKey{controller, action}]
}

// Load creates a registry from a parsed document.
func Load(d *Document) (*Registry, error) {
	r := NewRegistry()
	for cname, c := range d.Controllers {
		ca, err := createAll(c.Annotations)
		if err != nil {
			return nil, fmt.Errorf("controller %s: %w", cname, err)
		}

		r.AddController(cname, ca...)
		for aname, a := range c.Actions {
			aa, err := createAll(a.Annotations)
			if err != nil {
				return nil, fmt.Errorf("action %s::%s: %w", cname, aname, err)
			}

			r.AddAction(cname, aname, aa...)
		}
	}

	return r, nil
}

// Parse creates a registry from YAML or JSON data.
func Parse(data []byte) (*Registry, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}

	return Load(&d)
}

// LoadFile creates a registry from a YAML or JSON file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func createAll(docs []map[string]map[string]interface{}) ([]interface{}, error) {
	var a []interface{}
	for _, d := range docs {
		for name, values := range d {
			ai, err := create(name, values)
			if err != nil {
				return nil, err
			}

			a = append(a, ai)
		}
	}

	return a, nil
}

func create(name string, values map[string]interface{}) (interface{}, error) {
	switch name {
	case "pjax":
		return New(values)
	default:
		return &Unknown{Name: name, Values: values}, nil
	}
}
