// Package executors holds the builtin request handlers. Each payload type
// names the executor that converges it.
package executors

// Request types handled by the builtin executors
const (
	TypePackageDependency = "package-json:dependency"
	TypePackageScript     = "package-json:script"
	TypeTSConfigPath      = "tsconfig:path"
	TypeDotConfig         = "dot-config:configure"
	TypeEnvVariable       = "env:variable"
	TypeComposeService    = "docker-compose:service"
	TypeImport            = "typescript:import"
	TypeDecoratorArray    = "typescript:decorator-array"
	TypeFileTemplate      = "file:template"
)

// Dependency is an npm package in package.json
type Dependency struct {
	Name    string
	Version string
	Dev     bool
}

func (Dependency) RequestType() string { return TypePackageDependency }

// Script is an npm script in package.json
type Script struct {
	Name    string
	Command string
	// Overwrite replaces a script the user changed
	Overwrite bool
}

func (Script) RequestType() string { return TypePackageScript }

// TSConfigPath is a compilerOptions.paths alias
type TSConfigPath struct {
	Alias string
	Paths []string
	// File defaults to tsconfig.json
	File string
}

func (TSConfigPath) RequestType() string { return TypeTSConfigPath }

// Layer selects the dot-config file a value is written to
type Layer string

const (
	LayerDefault Layer = "default"
	LayerStage   Layer = "stage"
	LayerLocal   Layer = "local"
)

// ConfigValue is a key in a dot-config YAML file
type ConfigValue struct {
	// Key is a dotted path such as redis.host
	Key   string
	Value interface{}
	Layer Layer
	// Stage is required for the stage layer and optional for local
	Stage string
	// Overwrite replaces a value the user changed
	Overwrite bool
}

func (ConfigValue) RequestType() string { return TypeDotConfig }

// EnvVariable is a variable in a dotenv file
type EnvVariable struct {
	// File defaults to .env
	File      string
	Name      string
	Value     string
	Comment   string
	Overwrite bool
}

func (EnvVariable) RequestType() string { return TypeEnvVariable }

// ComposeService is a docker-compose service with its named volumes
type ComposeService struct {
	Name    string
	Service map[string]interface{}
	Volumes []string
	// File defaults to docker-compose.yml
	File string
}

func (ComposeService) RequestType() string { return TypeComposeService }

// Import is an ES import specifier in a TypeScript file
type Import struct {
	File   string
	Symbol string
	From   string
}

func (Import) RequestType() string { return TypeImport }

// DecoratorElement is an element of an array property in a decorator
// argument, e.g. imports in @Module({ imports: [...] })
type DecoratorElement struct {
	File      string
	Decorator string
	Property  string
	Element   string
	// Match identifies an existing element by its leading identifier so
	// EmailModule.forRoot({...}) matches regardless of arguments
	Match string
}

func (DecoratorElement) RequestType() string { return TypeDecoratorArray }

// FileTemplate is a project file rendered from an embedded template
type FileTemplate struct {
	Path     string
	Template string
	Vars     map[string]interface{}
}

func (FileTemplate) RequestType() string { return TypeFileTemplate }
