package component

const (
	DriveFear    = "fear"
	DriveAnger   = "anger"
	DriveHunger  = "hunger"
	DriveFatigue = "fatigue"
	DrivePain    = "pain"

	GoalSurvival    = "survival"
	GoalSocial      = "social"
	GoalAchievement = "achievement"
	GoalCuriosity   = "curiosity"
	GoalComfort     = "comfort"
)

// Motivation holds long-lived goals and short-lived drives, all in [0,1].
type Motivation struct {
	Goals  map[string]float64
	Drives map[string]float64
}

var MotivationComponent = NewComponent[Motivation]()

func NewMotivation(goals, drives map[string]float64) Motivation {
	m := Motivation{Goals: map[string]float64{}, Drives: map[string]float64{}}
	for k, v := range goals {
		m.SetGoal(k, v)
	}
	for k, v := range drives {
		m.SetDrive(k, v)
	}
	return m
}

func (m Motivation) Goal(name string) float64  { return m.Goals[name] }
func (m Motivation) Drive(name string) float64 { return m.Drives[name] }

func (m *Motivation) SetGoal(name string, v float64) {
	if m.Goals == nil {
		m.Goals = map[string]float64{}
	}
	m.Goals[name] = clampUnit(v)
}

func (m *Motivation) SetDrive(name string, v float64) {
	if m.Drives == nil {
		m.Drives = map[string]float64{}
	}
	m.Drives[name] = clampUnit(v)
}

func (m *Motivation) AdjustDrive(name string, delta float64) {
	m.SetDrive(name, m.Drive(name)+delta)
}
