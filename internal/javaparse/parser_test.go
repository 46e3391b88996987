package javaparse

import (
	"errors"
	"testing"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTest = `/*
 * Licensed under the Apache License.
 */
package com.example.orders;

import org.junit.jupiter.api.Test;
import static org.junit.jupiter.api.Assertions.*;

@DisplayName("orders")
public class OrderServiceTest extends BaseTest<Order> implements Comparable<OrderServiceTest> {

    private static final String PREFIX = "TC-" + "1";
    private final Map<String, List<Integer>> cache = new HashMap<>() {{ put("a", List.of(1)); }};
    private Runnable r = () -> { System.out.println("}"); };

    static { init(); }

    @Test
    @TestCaseId("TC-100")
    void createsOrder() {
        String s = "{ not a brace";
        char c = '{';
        if (a < b && c > d) { return; }
    }

    @org.junit.jupiter.api.Test
    @TestCaseInfo(
        title = "Cancel " + "order",
        testCaseIds = {"TC-1", "TC-2",},
        tags = {},
        status = Status.DONE,
        description = """
            Multi line
              description
            """)
    public void cancelsOrder(final @Mock Order order, Map<String, List<Integer>> byId, String... names) throws Exception {
    }

    @ParameterizedTest
    @Tags({@Tag("smoke"), @Tag(value = "ORD-42")})
    void parameterized(int[] sizes, int legacy[]) {}

    // @Test commented out
    void helper() {}

    @Nested
    class WhenEmpty {
        @RepeatedTest(3)
        void repeats() {}

        record Point(int x, int y) {
            Point {
                if (x < 0) throw new IllegalArgumentException();
            }
        }
    }

    enum Kind {
        A("x") { void special() {} },
        B;

        void kindMethod() {}
    }

    @interface Marker {
        String value() default "{}";
        String[] more() default {"a", "b"};
    }
}
`

func TestParse_Sample(t *testing.T) {
	f, err := Parse("OrderServiceTest.java", []byte(sampleTest))
	require.NoError(t, err)
	assert.Equal(t, "com.example.orders", f.Package)

	var names []string
	for _, c := range f.Classes {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"OrderServiceTest",
		"OrderServiceTest.WhenEmpty",
		"OrderServiceTest.WhenEmpty.Point",
		"OrderServiceTest.Kind",
		"OrderServiceTest.Marker",
	}, names)

	outer := f.Classes[0]
	require.Len(t, outer.Methods, 4)

	created := outer.Methods[0]
	assert.Equal(t, "createsOrder", created.Name)
	assert.Equal(t, "createsOrder()", created.Signature())
	assert.Equal(t, 18, created.Line)
	require.Len(t, created.Annotations, 2)
	assert.Equal(t, "Test", created.Annotations[0].Name)
	assert.Equal(t, []string{"TC-100"}, created.Annotations[1].Values("value"))

	cancel := outer.Methods[1]
	assert.Equal(t, "cancelsOrder(Order,Map<String,List<Integer>>,String...)", cancel.Signature())
	info, ok := cancel.Annotation("TestCaseInfo")
	require.True(t, ok)
	assert.Equal(t, "Test", cancel.Annotations[0].Name, "qualified names reduce to the simple name")
	assert.Equal(t, "Cancel order", info.Value("title"))
	assert.Equal(t, []string{"TC-1", "TC-2"}, info.Values("testCaseIds"))
	assert.NotNil(t, info.Values("tags"))
	assert.Empty(t, info.Values("tags"))
	assert.Equal(t, "Status.DONE", info.Value("status"))
	assert.Equal(t, "Multi line\n  description\n", info.Value("description"))

	param := outer.Methods[2]
	assert.Equal(t, "parameterized(int[],int[])", param.Signature())
	tags, ok := param.Annotation("Tags")
	require.True(t, ok)
	require.Len(t, tags.Nested["value"], 2)
	assert.Equal(t, "smoke", tags.Nested["value"][0].Value("value"))
	assert.Equal(t, "ORD-42", tags.Nested["value"][1].Value("value"))

	helper := outer.Methods[3]
	assert.Equal(t, "helper", helper.Name)
	assert.Empty(t, helper.Annotations)

	inner := f.Classes[1]
	require.Len(t, inner.Methods, 1)
	assert.Equal(t, []string{"3"}, inner.Methods[0].Annotations[0].Values("value"))

	kind := f.Classes[3]
	require.Len(t, kind.Methods, 1)
	assert.Equal(t, "kindMethod", kind.Methods[0].Name)

	marker := f.Classes[4]
	require.Len(t, marker.Methods, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", "class A { String s = \"abc; }"},
		{"unterminated comment", "class A { /* never closed }"},
		{"unterminated text block", "class A { String s = \"\"\"\n abc }"},
		{"missing closing brace", "class A { void m() { }"},
		{"extra closing brace", "class A { } }"},
		{"mismatched bracket", "class A { void m() { foo(]; } }"},
		{"unterminated annotation", "class A { @Test(\"x\" void m() {} }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("A.java", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, contract.ErrParse), "got %v", err)
			assert.True(t, IsParseError(err))
			assert.Contains(t, err.Error(), "A.java:")
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse("Empty.java", nil)
	require.NoError(t, err)
	assert.Empty(t, f.Classes)
	assert.Equal(t, "", f.Package)
}

func TestParse_PackageInfo(t *testing.T) {
	f, err := Parse("package-info.java", []byte("@Deprecated\npackage com.example;\n"))
	require.NoError(t, err)
	assert.Equal(t, "com.example", f.Package)
}

func TestParse_MethodLineIncludesAnnotations(t *testing.T) {
	src := "class A {\n\n  @Test\n  @TestCaseId(\"X-1\")\n  public void m() {}\n}\n"
	f, err := Parse("A.java", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Classes[0].Methods, 1)
	m := f.Classes[0].Methods[0]
	assert.Equal(t, 3, m.Line)
	assert.Equal(t, 3, m.Annotations[0].Line)
	assert.Equal(t, 4, m.Annotations[1].Line)
}

func TestParse_Generics(t *testing.T) {
	src := `class A<T extends Comparable<? super T>> {
		public <R extends Number> List<R> convert(List<? extends T> in, Function<T, R> fn) { return null; }
		Map<String, Map<String, int[]>> nested;
	}`
	f, err := Parse("A.java", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Classes[0].Methods, 1)
	assert.Equal(t, "convert(List<? extends T>,Function<T,R>)", f.Classes[0].Methods[0].Signature())
}

func TestParse_AnnotationValues(t *testing.T) {
	src := `class A {
		@TestCaseId({"A-1", "A-2"}) @Tag("it's" + "-" + "fine") @Timeout(value = 5, unit = TimeUnit.SECONDS)
		@Escapes("tab\there A \"q\"") @Empty() @Marker
		void m() {}
	}`
	f, err := Parse("A.java", []byte(src))
	require.NoError(t, err)
	m := f.Classes[0].Methods[0]

	ids, _ := m.Annotation("TestCaseId")
	assert.Equal(t, []string{"A-1", "A-2"}, ids.Values("value"))

	tag, _ := m.Annotation("Tag")
	assert.Equal(t, "it's-fine", tag.Value("value"))

	timeout, _ := m.Annotation("Timeout")
	assert.Equal(t, "5", timeout.Value("value"))
	assert.Equal(t, "TimeUnit.SECONDS", timeout.Value("unit"))

	esc, _ := m.Annotation("Escapes")
	assert.Equal(t, "tab\there A \"q\"", esc.Value("value"))

	empty, _ := m.Annotation("Empty")
	assert.NotNil(t, empty.Args)
	assert.Empty(t, empty.Args)

	marker, ok := m.Annotation("Marker")
	assert.True(t, ok)
	assert.Nil(t, marker.Args)

	_, ok = m.Annotation("Missing")
	assert.False(t, ok)
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "a\n  b\n", dedent("\n    a\n      b\n    "))
	assert.Equal(t, "x", dedent("x"))
}
