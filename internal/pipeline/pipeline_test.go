package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PML54/pmltools/internal/config"
	"github.com/PML54/pmltools/internal/store"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.App.Name = "demo"
	return cfg
}

func runPipeline(t *testing.T, root string, cfg *config.Config) (*store.Store, *RunSummary) {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	summary, err := New(context.Background(), s, root, cfg).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return s, summary
}

func classByName(t *testing.T, s *store.Store, name string) *store.Class {
	t.Helper()
	classes, err := s.FindClassesByName(name)
	if err != nil {
		t.Fatalf("find class %s: %v", name, err)
	}
	if len(classes) == 0 {
		t.Fatalf("class %s not recorded", name)
	}
	return classes[0]
}

func methodByName(t *testing.T, s *store.Store, classID int64, name string) *store.Method {
	t.Helper()
	methods, err := s.MethodsByClass(classID)
	if err != nil {
		t.Fatalf("methods of class %d: %v", classID, err)
	}
	for _, m := range methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not recorded on class %d", name, classID)
	return nil
}

func TestRunBasicExtraction(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/models/user.dart": `import 'dart:convert';

class User {
  final String name;

  String describe() {
    return name;
  }
}
`,
		"lib/service.dart": `import 'dart:convert';
import 'models/user.dart';

class UserService {
  User load() {
    return User();
  }
}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.FilesProcessed != 2 || summary.FilesFailed != 0 {
		t.Errorf("files = %d processed %d failed, want 2/0", summary.FilesProcessed, summary.FilesFailed)
	}
	if summary.Types != 2 {
		t.Errorf("types = %d, want 2", summary.Types)
	}
	if summary.Methods != 2 {
		t.Errorf("methods = %d, want 2", summary.Methods)
	}
	if summary.Imports != 2 {
		t.Errorf("imports = %d, want 2", summary.Imports)
	}

	files, err := s.SourceFiles()
	if err != nil {
		t.Fatalf("source files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("stored files = %d, want 2", len(files))
	}
	if files[0].Path != "lib/models/user.dart" || files[1].Path != "lib/service.dart" {
		t.Errorf("stored paths = %s, %s", files[0].Path, files[1].Path)
	}
	for _, f := range files {
		if f.Size == 0 || f.ContentHash == "" {
			t.Errorf("file %s missing metadata: size %d hash %q", f.Path, f.Size, f.ContentHash)
		}
		if _, err := time.Parse(time.RFC3339, f.ModifiedTime); err != nil {
			t.Errorf("file %s modified time %q: %v", f.Path, f.ModifiedTime, err)
		}
	}

	// UserService returns User from load and constructs one inside it:
	// one plain mention, one creation.
	user := classByName(t, s, "User")
	usages, err := s.ClassUsagesByReferenced(user.ID)
	if err != nil {
		t.Fatalf("usages: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("usages of User = %d, want 2", len(usages))
	}
	if usages[0].UsageType != "usage" || usages[1].UsageType != "creation" {
		t.Errorf("usage types = %s, %s", usages[0].UsageType, usages[1].UsageType)
	}
	service := classByName(t, s, "UserService")
	for _, u := range usages {
		if u.SourceClassID != service.ID {
			t.Errorf("usage source class = %d, want %d", u.SourceClassID, service.ID)
		}
	}
	if !user.IsUsed {
		t.Error("User should be marked used")
	}
	if service.IsUsed {
		t.Error("UserService should not be marked used")
	}
}

func TestRunImportClassification(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/a.dart": `import 'dart:async';
import 'package:flutter/material.dart';
import 'package:demo/b.dart';

class A {}
`,
		"lib/b.dart": `import 'dart:async';

class B {}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.Imports != 3 {
		t.Errorf("imports = %d, want 3", summary.Imports)
	}
	relations, err := s.CountImportRelations()
	if err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if relations != 4 {
		t.Errorf("import relations = %d, want 4", relations)
	}

	tests := []struct {
		path       string
		isInternal bool
		isPackage  bool
	}{
		{"dart:async", false, false},
		{"package:flutter/material.dart", false, true},
		{"package:demo/b.dart", true, false},
	}
	for _, tt := range tests {
		imp, err := s.FindImportByPath(tt.path)
		if err != nil {
			t.Fatalf("find import %s: %v", tt.path, err)
		}
		if imp == nil {
			t.Fatalf("import %s not recorded", tt.path)
		}
		if imp.IsInternal != tt.isInternal || imp.IsPackage != tt.isPackage {
			t.Errorf("import %s flags = internal %v package %v, want %v %v",
				tt.path, imp.IsInternal, imp.IsPackage, tt.isInternal, tt.isPackage)
		}
	}
}

func TestRunWidgetClassification(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/home.dart": `import 'package:flutter/material.dart';

class HomePage extends StatefulWidget {
  @override
  State<HomePage> createState() => _HomePageState();
}

class _HomePageState extends State<HomePage> {
  int counter = 0;

  @override
  Widget build(BuildContext context) {
    if (counter > 0) {
      return Text('positive');
    }
    return Text('zero');
  }
}

class Banner extends StatelessWidget {
  @override
  Widget build(BuildContext context) {
    return Text('banner');
  }
}

class Splash extends StatelessWidget {}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.Types != 4 {
		t.Errorf("types = %d, want 4", summary.Types)
	}
	if summary.Methods != 4 {
		t.Errorf("methods = %d, want 4", summary.Methods)
	}

	home := classByName(t, s, "HomePage")
	if home.WidgetKind != "stateful" || home.FrameworkKind != "StatefulWidget" {
		t.Errorf("HomePage classified %s/%s", home.WidgetKind, home.FrameworkKind)
	}
	state := classByName(t, s, "_HomePageState")
	if state.WidgetKind != "state" || state.FrameworkKind != "State" {
		t.Errorf("_HomePageState classified %s/%s", state.WidgetKind, state.FrameworkKind)
	}
	banner := classByName(t, s, "Banner")
	if banner.WidgetKind != "stateless" || banner.FrameworkKind != "StatelessWidget" {
		t.Errorf("Banner classified %s/%s", banner.WidgetKind, banner.FrameworkKind)
	}

	// The mandated override keeps a fixed signature and baseline
	// complexity no matter what the source body looks like.
	createState := methodByName(t, s, home.ID, "createState")
	if createState.ReturnType != "State" || createState.ParamCount != 0 {
		t.Errorf("createState = %s/%d params", createState.ReturnType, createState.ParamCount)
	}
	if !createState.HasAnnotation {
		t.Error("createState written in source should keep its annotation flag")
	}
	build := methodByName(t, s, state.ID, "build")
	if build.ReturnType != "Widget" || build.ParamCount != 1 {
		t.Errorf("build = %s/%d params", build.ReturnType, build.ParamCount)
	}
	if build.Cyclomatic != 1 || build.Cognitive != 0 {
		t.Errorf("build scored %d/%d, want baseline 1/0", build.Cyclomatic, build.Cognitive)
	}

	// Splash spells no build at all; the record is synthesized.
	splash := classByName(t, s, "Splash")
	synth := methodByName(t, s, splash.ID, "build")
	if synth.HasAnnotation {
		t.Error("synthesized build should not carry an annotation")
	}
	if synth.ReturnType != "Widget" || synth.ParamCount != 1 || synth.Cyclomatic != 1 {
		t.Errorf("synthesized build = %s/%d params/%d", synth.ReturnType, synth.ParamCount, synth.Cyclomatic)
	}

	// createState constructs the state object.
	usages, err := s.ClassUsagesByReferenced(state.ID)
	if err != nil {
		t.Fatalf("usages: %v", err)
	}
	if len(usages) != 1 || usages[0].UsageType != "creation" {
		t.Fatalf("state usages = %+v, want one creation", usages)
	}
	if usages[0].SourceClassID != home.ID || usages[0].SourceMethodID != createState.ID {
		t.Errorf("creation attributed to class %d method %d", usages[0].SourceClassID, usages[0].SourceMethodID)
	}
	if !classByName(t, s, "_HomePageState").IsUsed {
		t.Error("_HomePageState should be marked used")
	}

	relations, err := s.CountClassRelations()
	if err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if relations != 4 {
		t.Errorf("class relations = %d, want 4", relations)
	}
}

func TestRunMethodMetrics(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/calc.dart": `class Calculator {
  int score(int a, int b) {
    if (a > b) {
      return a;
    } else {
      return b;
    }
  }

  Future<int> fetch() async {
    return 1;
  }

  static int twice(int a) {
    return a * 2;
  }

  int get half {
    return 21;
  }
}
`,
	})
	s, _ := runPipeline(t, root, testConfig())
	calc := classByName(t, s, "Calculator")

	score := methodByName(t, s, calc.ID, "score")
	if score.ReturnType != "int" || score.ParamCount != 2 {
		t.Errorf("score = %s/%d params", score.ReturnType, score.ParamCount)
	}
	if score.Cyclomatic != 2 || score.Cognitive != 2 {
		t.Errorf("score scored %d/%d, want 2/2", score.Cyclomatic, score.Cognitive)
	}
	if score.IsAsync || score.IsStatic {
		t.Errorf("score flags async %v static %v", score.IsAsync, score.IsStatic)
	}

	fetch := methodByName(t, s, calc.ID, "fetch")
	if !fetch.IsAsync {
		t.Error("fetch should be async")
	}
	if fetch.ReturnType != "Future" {
		t.Errorf("fetch return type = %s, want Future", fetch.ReturnType)
	}

	twice := methodByName(t, s, calc.ID, "twice")
	if !twice.IsStatic {
		t.Error("twice should be static")
	}
	if twice.ParamCount != 1 {
		t.Errorf("twice params = %d, want 1", twice.ParamCount)
	}

	half := methodByName(t, s, calc.ID, "half")
	if half.ReturnType != "int" || half.ParamCount != 0 {
		t.Errorf("half = %s/%d params", half.ReturnType, half.ParamCount)
	}
}

func TestRunUsageGraph(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/car.dart": `class Engine {
  void start() {}
}

class Car {
  final Engine engine = Engine();

  void drive() {
    engine.start();
  }
}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.TypeRefs != 2 {
		t.Errorf("type refs = %d, want 2", summary.TypeRefs)
	}
	if summary.MethodRefs != 1 {
		t.Errorf("method refs = %d, want 1", summary.MethodRefs)
	}

	engine := classByName(t, s, "Engine")
	car := classByName(t, s, "Car")
	usages, err := s.ClassUsagesByReferenced(engine.ID)
	if err != nil {
		t.Fatalf("usages: %v", err)
	}
	if len(usages) != 2 {
		t.Fatalf("usages of Engine = %d, want 2", len(usages))
	}
	// Field type mention first, then the initializer construction.
	if usages[0].UsageType != "usage" || usages[1].UsageType != "creation" {
		t.Errorf("usage types = %s, %s", usages[0].UsageType, usages[1].UsageType)
	}
	// Field declarations sit outside every method body.
	if usages[0].SourceMethodID != 0 || usages[1].SourceMethodID != 0 {
		t.Errorf("field-level references attributed to methods %d, %d",
			usages[0].SourceMethodID, usages[1].SourceMethodID)
	}

	start := methodByName(t, s, engine.ID, "start")
	drive := methodByName(t, s, car.ID, "drive")
	calls, err := s.MethodUsagesByReferenced(start.ID)
	if err != nil {
		t.Fatalf("method usages: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls of start = %d, want 1", len(calls))
	}
	if !calls[0].IsDirectCall {
		t.Error("start call should be direct")
	}
	if calls[0].SourceClassID != car.ID || calls[0].SourceMethodID != drive.ID {
		t.Errorf("call attributed to class %d method %d, want %d/%d",
			calls[0].SourceClassID, calls[0].SourceMethodID, car.ID, drive.ID)
	}

	if !engine.IsUsed {
		t.Error("Engine should be marked used")
	}
	if car.IsUsed {
		t.Error("Car should not be marked used")
	}
}

func TestRunPerFileIsolation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/broken.dart": `import 'dart:async';

class Broken {
  void m( {
}
`,
		"lib/good.dart": `class Good {
  void run() {}
}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.FilesProcessed != 1 || summary.FilesFailed != 1 {
		t.Errorf("files = %d processed %d failed, want 1/1", summary.FilesProcessed, summary.FilesFailed)
	}
	if summary.Types != 1 {
		t.Errorf("types = %d, want 1 (Good only)", summary.Types)
	}

	// The unparseable file keeps its record and its imports.
	broken, err := s.FindSourceFileByPath("lib/broken.dart")
	if err != nil {
		t.Fatalf("find broken: %v", err)
	}
	if broken == nil {
		t.Fatal("broken file has no record")
	}
	imports, err := s.ImportsByFile(broken.ID)
	if err != nil {
		t.Fatalf("imports by file: %v", err)
	}
	if len(imports) != 1 || imports[0].Path != "dart:async" {
		t.Errorf("broken file imports = %+v, want dart:async", imports)
	}

	classes, err := s.Classes()
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	if len(classes) != 1 || classes[0].Name != "Good" {
		t.Errorf("classes = %+v, want Good only", classes)
	}
}

func TestRunSameNameClasses(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/a.dart": `class Shape {
  void draw() {}
}
`,
		"lib/b.dart": `class Shape {
  void render() {}
}
`,
		"lib/c.dart": `class Canvas {
  void paint() {
    Shape();
  }
}
`,
	})
	s, _ := runPipeline(t, root, testConfig())

	shapes, err := s.FindClassesByName("Shape")
	if err != nil {
		t.Fatalf("find shapes: %v", err)
	}
	if len(shapes) != 2 {
		t.Fatalf("Shape rows = %d, want 2", len(shapes))
	}
	if shapes[0].FileID == shapes[1].FileID {
		t.Error("same-named classes should keep distinct file associations")
	}
	methodByName(t, s, shapes[0].ID, "draw")
	methodByName(t, s, shapes[1].ID, "render")

	// Name resolution goes to the earliest declaration.
	first, err := s.ClassUsagesByReferenced(shapes[0].ID)
	if err != nil {
		t.Fatalf("usages: %v", err)
	}
	second, err := s.ClassUsagesByReferenced(shapes[1].ID)
	if err != nil {
		t.Fatalf("usages: %v", err)
	}
	if len(first) != 1 || len(second) != 0 {
		t.Errorf("usages split %d/%d, want 1/0", len(first), len(second))
	}
	if !shapes[0].IsUsed {
		t.Error("first Shape should be marked used")
	}
	if shapes[1].IsUsed {
		t.Error("second Shape should not be marked used")
	}
}

func TestRunInheritanceRelations(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/shapes.dart": `abstract class Drawable {
  void draw();
}

mixin Logging {
  void log() {}
}

class Base {
  void init() {}
}

class Circle extends Base with Logging implements Drawable {
  @override
  void draw() {}
}

enum Color { red, green, blue }
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.Types != 5 {
		t.Errorf("types = %d, want 5", summary.Types)
	}
	if summary.TypeRefs != 3 {
		t.Errorf("type refs = %d, want 3 (all clauses resolve)", summary.TypeRefs)
	}

	if k := classByName(t, s, "Drawable").Kind; k != "abstract" {
		t.Errorf("Drawable kind = %s, want abstract", k)
	}
	if k := classByName(t, s, "Logging").Kind; k != "mixin" {
		t.Errorf("Logging kind = %s, want mixin", k)
	}
	if k := classByName(t, s, "Color").Kind; k != "enum" {
		t.Errorf("Color kind = %s, want enum", k)
	}
	circle := classByName(t, s, "Circle")
	if circle.Kind != "class" {
		t.Errorf("Circle kind = %s, want class", circle.Kind)
	}

	relations, err := s.ClassRelations()
	if err != nil {
		t.Fatalf("relations: %v", err)
	}
	if len(relations) != 3 {
		t.Fatalf("relations = %d, want 3", len(relations))
	}
	types := map[string]string{}
	for _, r := range relations {
		if r.ClassName != "Circle" {
			t.Errorf("relation declared by %s, want Circle", r.ClassName)
		}
		types[r.RelatedName] = r.RelationType
	}
	if types["Base"] != "extends" || types["Drawable"] != "implements" || types["Logging"] != "with" {
		t.Errorf("relation types = %v", types)
	}

	for _, name := range []string{"Base", "Drawable", "Logging"} {
		if !classByName(t, s, name).IsUsed {
			t.Errorf("%s should be marked used", name)
		}
	}
	if circle.IsUsed {
		t.Error("Circle should not be marked used")
	}

	// Bodyless abstract methods score the baseline; overriding keeps
	// a distinct row per class.
	drawable := classByName(t, s, "Drawable")
	abstractDraw := methodByName(t, s, drawable.ID, "draw")
	if abstractDraw.Cyclomatic != 1 || abstractDraw.Cognitive != 0 {
		t.Errorf("abstract draw scored %d/%d", abstractDraw.Cyclomatic, abstractDraw.Cognitive)
	}
	if abstractDraw.HasAnnotation {
		t.Error("abstract draw should not carry an annotation")
	}
	circleDraw := methodByName(t, s, circle.ID, "draw")
	if !circleDraw.HasAnnotation {
		t.Error("overriding draw should carry its annotation")
	}
}

func TestRunInterfaceMarker(t *testing.T) {
	cfg := testConfig()
	cfg.Analyzer.InterfaceMarkers = []string{"Marker"}
	root := writeProject(t, map[string]string{
		"lib/i.dart": `class Marker {}

class Spec implements Marker {}
`,
	})
	s, _ := runPipeline(t, root, cfg)

	if k := classByName(t, s, "Spec").Kind; k != "interface" {
		t.Errorf("Spec kind = %s, want interface", k)
	}
	if k := classByName(t, s, "Marker").Kind; k != "class" {
		t.Errorf("Marker kind = %s, want class", k)
	}
}

func TestRunDuplicateMethodSkipped(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/dup.dart": `class Dup {
  void same() {}

  void same() {
    return;
  }
}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	if summary.Methods != 1 {
		t.Errorf("methods = %d, want 1", summary.Methods)
	}
	if summary.SkippedRecords != 1 {
		t.Errorf("skipped = %d, want 1", summary.SkippedRecords)
	}
	dup := classByName(t, s, "Dup")
	methods, err := s.MethodsByClass(dup.ID)
	if err != nil {
		t.Fatalf("methods: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("stored methods = %d, want 1", len(methods))
	}
}

func TestRunRebuildIdempotent(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/a.dart": `import 'dart:async';

class Worker {
  void work() {}
}
`,
		"lib/b.dart": `import 'dart:async';
import 'a.dart';

class Boss {
  void delegate() {
    Worker().work();
  }
}
`,
	})
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	cfg := testConfig()

	first, err := New(context.Background(), s, root, cfg).Run()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := New(context.Background(), s, root, cfg).Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.FilesProcessed != second.FilesProcessed ||
		first.Types != second.Types ||
		first.Methods != second.Methods ||
		first.TypeRefs != second.TypeRefs ||
		first.MethodRefs != second.MethodRefs ||
		first.Imports != second.Imports ||
		first.SkippedRecords != second.SkippedRecords {
		t.Errorf("summaries diverge: first %+v second %+v", first, second)
	}

	classes, err := s.CountClasses()
	if err != nil {
		t.Fatalf("count classes: %v", err)
	}
	if classes != second.Types {
		t.Errorf("classes after rebuild = %d, want %d", classes, second.Types)
	}
}

func TestRunSynthesizedDocumentation(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/app.dart": `class Greeter {
  String hello() {
    return 'hi';
  }

  String bye() {
    return 'bye';
  }
}
`,
	})
	s, _ := runPipeline(t, root, testConfig())

	count, err := s.CountClassDocumentations()
	if err != nil {
		t.Fatalf("count docs: %v", err)
	}
	if count != 1 {
		t.Fatalf("documentation rows = %d, want 1", count)
	}
	docs, err := s.ClassDocumentations()
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	want := "Class Greeter with 2 methods (hello, bye); no recorded usages."
	if docs[0].Documentation != want {
		t.Errorf("documentation = %q, want %q", docs[0].Documentation, want)
	}
	if docs[0].GeneratedAt == "" {
		t.Error("documentation missing timestamp")
	}
}

func TestRunSummaryMatchesStore(t *testing.T) {
	root := writeProject(t, map[string]string{
		"lib/a.dart": `import 'dart:async';

class Job {
  void run() {}
}
`,
		"lib/b.dart": `import 'a.dart';

class Queue {
  void push() {
    Job().run();
  }
}
`,
	})
	s, summary := runPipeline(t, root, testConfig())

	counts := []struct {
		name  string
		got   func() (int, error)
		want  int
		label string
	}{
		{"files", s.CountSourceFiles, summary.FilesProcessed, "FilesProcessed"},
		{"classes", s.CountClasses, summary.Types, "Types"},
		{"methods", s.CountMethods, summary.Methods, "Methods"},
		{"class usages", s.CountClassUsages, summary.TypeRefs, "TypeRefs"},
		{"method usages", s.CountMethodUsages, summary.MethodRefs, "MethodRefs"},
		{"imports", s.CountImports, summary.Imports, "Imports"},
	}
	for _, c := range counts {
		got, err := c.got()
		if err != nil {
			t.Fatalf("count %s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("stored %s = %d, summary %s = %d", c.name, got, c.label, c.want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	root := writeProject(t, map[string]string{"lib/a.dart": "class A {}\n"})
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ctx, s, root, testConfig()).Run(); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled run returned %v, want context.Canceled", err)
	}
}
