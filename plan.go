package jarpatch

// Method names and messages used by the patch.
const (
	MainMethodName = "main"
	InitMethodName = "init"

	// MainDescriptor is the descriptor of public static void main(String[]).
	MainDescriptor = "([Ljava/lang/String;)V"

	MainAddedMessage    = "Main method added"
	InitInjectedMessage = "Injected code before init"
	MainInjectedMessage = "Injected code before main"
)

// Plan is the edit chosen for a class.
type Plan struct {
	// AddMain reports whether a main method is synthesized.
	AddMain bool

	// Target is the method that receives the injected statement.
	Target string

	// Statement is inserted at the start of Target.
	Statement Statement
}

// plans maps [hasMain][hasInit] to the edit. init is preferred as the
// injection target; main is the fallback and exists after AddMain.
var plans = [2][2]Plan{
	{
		{AddMain: true, Target: MainMethodName, Statement: Println(MainInjectedMessage)},
		{AddMain: true, Target: InitMethodName, Statement: Println(InitInjectedMessage)},
	},
	{
		{Target: MainMethodName, Statement: Println(MainInjectedMessage)},
		{Target: InitMethodName, Statement: Println(InitInjectedMessage)},
	},
}

// Decide returns the plan for a class given which methods it declares.
func Decide(hasMain, hasInit bool) Plan {
	return plans[b2i(hasMain)][b2i(hasInit)]
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
