package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
)

const scenarioTypeName = "Scenario"

// stepEpoch pins the epoch used by every later model step.
const stepEpoch = "epoch"

// Scenario is the ordered list of steps declared by a script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one declared call. Kind is "epoch", a model kind or a sequence
// method; Args holds the Lua table converted to Go values.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script and returns the Scenario it builds.
// The script must return the value created by Scenario.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, invalid("load lua", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, invalid("run lua", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, invalid("script must return Scenario", nil)
	}
	scenario, ok := state.ToUserData(-1).(*Scenario)
	state.Pop(1)
	if !ok || scenario == nil {
		return nil, invalid("script returned invalid Scenario", nil)
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func invalid(reason string, cause error) error {
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	return &apperrors.Error{
		Code:     apperrors.CodeScenarioInvalid,
		Message:  "scenario invalid: " + reason,
		Metadata: map[string]string{"Reason": reason},
		Cause:    cause,
	}
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods(), 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{{Name: "new", Function: scenarioNew}}, 0)
	state.SetGlobal("Scenario")
}

func scenarioMethods() []lua.RegistryFunction {
	methods := []lua.RegistryFunction{
		{Name: stepEpoch, Function: scenarioEpoch},
		{Name: string(congruential.MethodLinear), Function: tableStep(string(congruential.MethodLinear))},
		{Name: string(congruential.MethodMultiplicative), Function: tableStep(string(congruential.MethodMultiplicative))},
	}
	for _, kind := range exercise.Kinds {
		methods = append(methods, lua.RegistryFunction{Name: string(kind), Function: tableStep(string(kind))})
	}
	return methods
}

func scenarioNew(state *lua.State) int {
	scenario := &Scenario{Name: lua.OptString(state, 1, "")}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

// scenarioEpoch handles scene:epoch(n).
func scenarioEpoch(state *lua.State) int {
	scenario := checkScenario(state)
	n := lua.CheckNumber(state, 2)
	if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
		lua.ArgumentError(state, 2, "epoch must be an integer between 0 and 4294967295")
		return 0
	}
	appendStep(scenario, stepEpoch, map[string]any{"epoch": uint32(n)})
	state.PushValue(1)
	return 1
}

// tableStep handles scene:<kind>{...}. Returning the scenario lets calls chain.
func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		appendStep(scenario, kind, tableToMap(state, 2))
		state.PushValue(1)
		return 1
	}
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToMap(state, index)
	default:
		return nil
	}
}

// normalizeNumber keeps integral Lua numbers as int so integer parameters are
// read exactly.
func normalizeNumber(value float64) any {
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
